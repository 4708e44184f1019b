package messaging

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

func TestDispatcherRoutesToRegisteredListeners(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	var ran int
	require.NoError(t, d.Register(shared.EventOfferingCreated, Registration{
		Name:    "counter",
		Handler: func(shared.Event) error { ran++; return nil },
	}))

	d.Dispatch(newTestEvent(shared.EventOfferingCreated))
	d.Dispatch(newTestEvent(shared.EventMessageSent))

	assert.Equal(t, 1, ran)
}

func TestDispatcherRejectsBadRegistrations(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	assert.Error(t, d.Register(shared.EventOfferingCreated, Registration{Name: "no-handler"}))
	assert.Error(t, d.Register(shared.EventOfferingCreated, Registration{
		Handler: func(shared.Event) error { return nil },
	}))
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	var attempts int32
	require.NoError(t, d.Register(shared.EventDashboardUpdated, Registration{
		Name: "flaky",
		Handler: func(shared.Event) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
		RetryDeadline:  500 * time.Millisecond,
		InitialBackoff: 5 * time.Millisecond,
	}))

	d.Dispatch(newTestEvent(shared.EventDashboardUpdated))

	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, int64(1), d.Metrics().RetrySuccesses)
}

func TestDispatcherAbandonsPastRetryDeadline(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	var attempts int32
	require.NoError(t, d.Register(shared.EventDashboardUpdated, Registration{
		Name: "hopeless",
		Handler: func(shared.Event) error {
			atomic.AddInt32(&attempts, 1)
			return errors.New("permanent")
		},
		RetryDeadline:  30 * time.Millisecond,
		InitialBackoff: 10 * time.Millisecond,
	}))

	d.Dispatch(newTestEvent(shared.EventDashboardUpdated))

	// Bounded: several attempts, then the side effect is dropped.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempts), int32(1))
	assert.Equal(t, int64(1), d.Metrics().AbandonedTotal[shared.EventDashboardUpdated])
}

func TestDispatcherNoRetryWithoutDeadline(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	var attempts int32
	require.NoError(t, d.Register(shared.EventTutorVerified, Registration{
		Name: "once",
		Handler: func(shared.Event) error {
			atomic.AddInt32(&attempts, 1)
			return errors.New("failed")
		},
	}))

	d.Dispatch(newTestEvent(shared.EventTutorVerified))

	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestDispatcherListenerIsolation(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	d.Use(RecoveryMiddleware(slog.Default()))

	var survivorRan bool
	require.NoError(t, d.Register(shared.EventOfferingUpdated, Registration{
		Name:    "panics",
		Handler: func(shared.Event) error { panic("listener bug") },
	}))
	require.NoError(t, d.Register(shared.EventOfferingUpdated, Registration{
		Name:    "survivor",
		Handler: func(shared.Event) error { survivorRan = true; return nil },
	}))

	d.Dispatch(newTestEvent(shared.EventOfferingUpdated))

	assert.True(t, survivorRan)
}

func TestDispatcherIsolatesPanicsWithoutMiddleware(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	// No middleware installed: the dispatcher itself must contain the panic.
	var survivorRan bool
	require.NoError(t, d.Register(shared.EventOfferingCreated, Registration{
		Name:    "panics",
		Handler: func(shared.Event) error { panic("listener bug") },
	}))
	require.NoError(t, d.Register(shared.EventOfferingCreated, Registration{
		Name:    "survivor",
		Handler: func(shared.Event) error { survivorRan = true; return nil },
	}))

	d.Dispatch(newTestEvent(shared.EventOfferingCreated))

	assert.True(t, survivorRan)
	assert.Equal(t, int64(1), d.Metrics().FailuresTotal)
}

func TestDispatcherContainsAsyncListenerPanic(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	require.NoError(t, d.Register(shared.EventDashboardUpdated, Registration{
		Name:    "panics-async",
		Handler: func(shared.Event) error { panic("listener bug") },
		Async:   true,
	}))

	// An unrecovered panic on the listener goroutine would kill the test
	// process; wait until the attempt is recorded as a plain failure.
	d.Dispatch(newTestEvent(shared.EventDashboardUpdated))

	deadline := time.Now().Add(2 * time.Second)
	for d.Metrics().Snapshot().TotalFailures == 0 {
		if time.Now().After(deadline) {
			t.Fatal("panicking listener attempt never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatcherRetrySleepReleasesPoolSlot(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{WorkerPoolSize: 1})
	defer d.Stop()

	require.NoError(t, d.Register(shared.EventDashboardUpdated, Registration{
		Name:           "stuck-retrying",
		Handler:        func(shared.Event) error { return errors.New("cache down") },
		Async:          true,
		RetryDeadline:  2 * time.Second,
		InitialBackoff: 500 * time.Millisecond,
	}))

	done := make(chan struct{})
	require.NoError(t, d.Register(shared.EventOfferingCreated, Registration{
		Name:    "unrelated",
		Handler: func(shared.Event) error { close(done); return nil },
		Async:   true,
	}))

	d.Dispatch(newTestEvent(shared.EventDashboardUpdated))
	time.Sleep(20 * time.Millisecond) // let the retrying listener enter its backoff

	// With a single slot, the unrelated listener only runs if the sleeping
	// retrier released it.
	d.Dispatch(newTestEvent(shared.EventOfferingCreated))

	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
		t.Fatal("unrelated listener starved by a retrying listener's backoff")
	}
}

func TestDispatcherAttachRoutesBusEvents(t *testing.T) {
	d := NewDispatcher(DispatcherConfig{})
	defer d.Stop()

	bus := syncBus()

	var (
		mu  sync.Mutex
		got []shared.EventType
	)
	require.NoError(t, d.Register(shared.EventMessageSent, Registration{
		Name: "collector",
		Handler: func(e shared.Event) error {
			mu.Lock()
			got = append(got, e.EventType())
			mu.Unlock()
			return nil
		},
	}))

	require.NoError(t, d.Attach(bus))
	require.NoError(t, bus.Publish(newTestEvent(shared.EventMessageSent)))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []shared.EventType{shared.EventMessageSent}, got)
}
