package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is run on every tick. Errors are logged; the schedule keeps going.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron schedule. A tick that arrives while the
// previous run is still going is skipped.
type Scheduler struct {
	spec   string
	job    Job
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	entry   cron.EntryID
}

// New validates spec and returns a stopped scheduler. spec is a standard
// five-field cron expression or a descriptor such as "@hourly" or
// "@every 10m".
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schedule")

	return &Scheduler{
		spec:   spec,
		job:    job,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger}))),
		logger: logger,
	}, nil
}

// Start schedules the job. The job receives ctx; when ctx is cancelled the
// scheduler stops and waits for a running job to return.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	id, err := s.cron.AddFunc(s.spec, func() { s.runJob(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	s.entry = id

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "schedule", s.spec, "next_run", s.nextRunLocked())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// RunNow runs the job once on the calling goroutine.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runJob(ctx)
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.logger.Info("scheduled run starting")

	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scheduled run completed", "duration", time.Since(start))
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run time, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	return s.nextRunLocked()
}

func (s *Scheduler) nextRunLocked() *time.Time {
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		// The cron loop fills Next asynchronously after Start.
		sched, err := cron.ParseStandard(s.spec)
		if err != nil {
			return nil
		}
		next = sched.Next(time.Now())
	}
	return &next
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
