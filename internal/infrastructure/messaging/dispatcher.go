package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// Dispatcher routes events to registered listeners with:
//   - an explicit registry (event type -> ordered listener registrations),
//     built once at process start; no reflection-based discovery
//   - middleware (recovery, logging)
//   - per-listener retry with exponential backoff, bounded by a declared
//     retry deadline: past the deadline the side effect is abandoned
//   - isolation: one listener failing never blocks the others and never
//     rolls back the mutation that raised the event
type Dispatcher struct {
	handlers    map[shared.EventType][]Registration
	middlewares []Middleware
	logger      *slog.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	workerPool  chan struct{}
	metrics     *Metrics
}

// Registration contains listener metadata.
type Registration struct {
	// Name identifies the listener in logs and metrics.
	Name string

	// Handler is the listener function.
	Handler shared.EventHandler

	// Async runs the listener on the worker pool, decoupled from the
	// publishing request. Listeners performing side effects are async.
	Async bool

	// RetryDeadline bounds the retry window. Zero means no retries: the
	// listener runs once and a failure is only logged. Once enqueued, a
	// listener is not cancellable; the deadline only stops further retries.
	RetryDeadline time.Duration

	// InitialBackoff is the first retry wait (default 1s).
	InitialBackoff time.Duration
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// WorkerPoolSize is the number of concurrent async listeners.
	WorkerPoolSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		handlers:   make(map[shared.EventType][]Registration),
		logger:     config.Logger,
		ctx:        ctx,
		cancel:     cancel,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		metrics:    NewMetrics(),
	}
}

// Register adds a listener registration for an event type.
func (d *Dispatcher) Register(eventType shared.EventType, reg Registration) error {
	if reg.Handler == nil {
		return errors.New("handler cannot be nil")
	}
	if reg.Name == "" {
		return errors.New("registration needs a name")
	}
	if reg.InitialBackoff <= 0 {
		reg.InitialBackoff = time.Second
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], reg)
	d.logger.Debug("registered listener",
		"event_type", eventType,
		"listener", reg.Name,
		"async", reg.Async,
	)

	return nil
}

// Attach subscribes the dispatcher to the bus so every published event is
// routed through the registry.
func (d *Dispatcher) Attach(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(func(event shared.Event) error {
		d.Dispatch(event)
		return nil
	})
}

// Use adds middleware wrapping every listener execution.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middlewares = append(d.middlewares, middleware)
}

// Dispatch routes an event to its registered listeners.
func (d *Dispatcher) Dispatch(event shared.Event) {
	d.mu.RLock()
	regs := d.handlers[event.EventType()]
	middlewares := d.middlewares
	d.mu.RUnlock()

	if len(regs) == 0 {
		return
	}

	d.metrics.RecordDispatch(event.EventType())

	for _, reg := range regs {
		if reg.Async {
			go d.executeListener(event, reg, middlewares)
		} else {
			d.executeListener(event, reg, middlewares)
		}
	}
}

func (d *Dispatcher) executeListener(event shared.Event, reg Registration, middlewares []Middleware) {
	handler := reg.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}

	start := time.Now()
	deadline := start.Add(reg.RetryDeadline)
	backoff := reg.InitialBackoff

	for attempt := 0; ; attempt++ {
		// The pool slot is held only while the listener runs, never across
		// a backoff sleep: a retrying listener must not starve the pool for
		// listeners of unrelated events.
		select {
		case d.workerPool <- struct{}{}:
		case <-d.ctx.Done():
			return
		}
		err := d.invoke(handler, event, reg.Name)
		<-d.workerPool

		d.metrics.RecordExecution(event.EventType(), time.Since(start), err == nil)
		if err == nil {
			if attempt > 0 {
				d.metrics.RecordRetrySuccess()
			}
			return
		}

		d.logger.Warn("listener attempt failed",
			"listener", reg.Name,
			"event_type", event.EventType(),
			"attempt", attempt,
			"error", err,
		)

		// Past the declared deadline the side effect is abandoned,
		// never escalated: the triggering mutation already stands.
		if reg.RetryDeadline <= 0 || time.Now().Add(backoff).After(deadline) {
			d.metrics.RecordAbandoned(event.EventType())
			d.logger.Error("listener abandoned",
				"listener", reg.Name,
				"event_type", event.EventType(),
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return
		}

		select {
		case <-d.ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// invoke runs one listener attempt. A panicking listener is converted into a
// plain error here, inside the dispatcher itself: isolation must hold even
// when no recovery middleware is installed, because async listeners run on
// their own goroutines where an escaped panic kills the process.
func (d *Dispatcher) invoke(handler shared.EventHandler, event shared.Event, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panic recovered",
				"listener", name,
				"event_type", event.EventType(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return handler(event)
}

// Stop stops the dispatcher. In-flight listeners finish their current
// attempt; pending retries are dropped.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.logger.Info("dispatcher stopped")
}

// Metrics returns dispatcher metrics.
func (d *Dispatcher) Metrics() *Metrics {
	return d.metrics
}

// ═══════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ═══════════════════════════════════════════════════════════════════════════

// Middleware wraps listener execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// RecoveryMiddleware recovers from panics in listeners.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("listener panic recovered",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("listener panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs listener execution.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			if err != nil {
				logger.Error("listener failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", time.Since(start),
					"error", err,
				)
			} else {
				logger.Debug("listener completed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", time.Since(start),
				)
			}
			return err
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// METRICS
// ═══════════════════════════════════════════════════════════════════════════

// Metrics tracks dispatcher performance.
type Metrics struct {
	mu sync.RWMutex

	DispatchedTotal  map[shared.EventType]int64
	ExecutionsTotal  int64
	SuccessTotal     int64
	FailuresTotal    int64
	RetrySuccesses   int64
	AbandonedTotal   map[shared.EventType]int64
	TotalDuration    time.Duration
	ExecutionsByType map[shared.EventType]int64
}

// NewMetrics creates a metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{
		DispatchedTotal:  make(map[shared.EventType]int64),
		AbandonedTotal:   make(map[shared.EventType]int64),
		ExecutionsByType: make(map[shared.EventType]int64),
	}
}

// RecordDispatch records an event dispatch.
func (m *Metrics) RecordDispatch(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DispatchedTotal[eventType]++
}

// RecordExecution records a listener execution.
func (m *Metrics) RecordExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecutionsTotal++
	m.TotalDuration += duration
	m.ExecutionsByType[eventType]++
	if success {
		m.SuccessTotal++
	} else {
		m.FailuresTotal++
	}
}

// RecordRetrySuccess records a listener that succeeded after retrying.
func (m *Metrics) RecordRetrySuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RetrySuccesses++
}

// RecordAbandoned records a listener abandoned past its retry deadline.
func (m *Metrics) RecordAbandoned(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AbandonedTotal[eventType]++
}

// Snapshot is a point-in-time view of the metrics.
type Snapshot struct {
	TotalDispatched int64
	TotalExecutions int64
	TotalFailures   int64
	SuccessRate     float64
	AverageDuration time.Duration
}

// Snapshot returns a copy of current metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var dispatched int64
	for _, v := range m.DispatchedTotal {
		dispatched += v
	}

	successRate := 1.0
	avg := time.Duration(0)
	if m.ExecutionsTotal > 0 {
		successRate = float64(m.SuccessTotal) / float64(m.ExecutionsTotal)
		avg = m.TotalDuration / time.Duration(m.ExecutionsTotal)
	}

	return Snapshot{
		TotalDispatched: dispatched,
		TotalExecutions: m.ExecutionsTotal,
		TotalFailures:   m.FailuresTotal,
		SuccessRate:     successRate,
		AverageDuration: avg,
	}
}
