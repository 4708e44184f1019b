// Package scheduler runs periodic background jobs, currently the attachment
// retention sweep over closed offerings.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is a unit of periodic background work.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Run executes the job. The context is cancelled when the scheduler
	// stops.
	Run(ctx context.Context) error
}

// Schedule decides when a job runs.
type Schedule interface {
	// Next returns the next run time after t.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

var (
	ErrNilJob         = errors.New("scheduler: nil job")
	ErrNilSchedule    = errors.New("scheduler: nil schedule")
	ErrJobExists      = errors.New("scheduler: job already registered")
	ErrAlreadyRunning = errors.New("scheduler: already running")
	ErrNotRunning     = errors.New("scheduler: not running")
)

type scheduledJob struct {
	job       Job
	schedule  Schedule
	lastRun   time.Time
	nextRun   time.Time
	runCount  int64
	failCount int64
}

// Scheduler runs registered jobs on their schedules. Jobs run concurrently
// with each other but a job never overlaps itself; a due job whose previous
// run is still going is skipped until the next tick.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*scheduledJob
	inFlight map[string]bool
	running  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *slog.Logger
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:     make(map[string]*scheduledJob),
		inFlight: make(map[string]bool),
		logger:   logger.With("component", "scheduler"),
	}
}

// Register adds a job. Returns ErrJobExists if the name is taken.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	next := schedule.Next(time.Now())
	s.jobs[name] = &scheduledJob{job: job, schedule: schedule, nextRun: next}

	s.logger.Info("job registered",
		"job", name,
		"schedule", schedule.String(),
		"next_run", next.Format(time.RFC3339),
	)
	return nil
}

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	count := len(s.jobs)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", count)

	s.wg.Add(1)
	go s.runLoop()
	return nil
}

// Stop cancels the loop and waits for running jobs to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runDueJobs()
		}
	}
}

func (s *Scheduler) runDueJobs() {
	now := time.Now()

	s.mu.Lock()
	var due []*scheduledJob
	for name, sj := range s.jobs {
		if now.After(sj.nextRun) && !s.inFlight[name] {
			s.inFlight[name] = true
			sj.lastRun = now
			sj.nextRun = sj.schedule.Next(now)
			sj.runCount++
			due = append(due, sj)
		}
	}
	s.mu.Unlock()

	for _, sj := range due {
		s.wg.Add(1)
		go s.runJob(sj)
	}
}

func (s *Scheduler) runJob(sj *scheduledJob) {
	defer s.wg.Done()

	name := sj.job.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", name, "panic", r)
		}
		s.mu.Lock()
		delete(s.inFlight, name)
		s.mu.Unlock()
	}()

	err := sj.job.Run(s.ctx)
	duration := time.Since(start)

	if err != nil {
		s.mu.Lock()
		sj.failCount++
		s.mu.Unlock()

		s.logger.Error("job failed", "job", name, "duration", duration.String(), "error", err)
		return
	}

	s.logger.Info("job completed", "job", name, "duration", duration.String())
}
