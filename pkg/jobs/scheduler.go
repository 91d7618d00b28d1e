package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mo-amir99/course-platform-go/pkg/metrics"
)

// Job represents a background job.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

const defaultJobTimeout = 5 * time.Minute

// Scheduler runs jobs on cron expressions.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]scheduledJob
	mu      sync.RWMutex
	logger  *slog.Logger
	timeout time.Duration
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type scheduledJob struct {
	job     Job
	spec    string
	entryID cron.EntryID
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates cron expressions in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.cron = newCron(s.logger, cron.WithLocation(loc))
	}
}

// WithTimeout bounds a single job execution.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *slog.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    newCron(logger),
		jobs:    make(map[string]scheduledJob),
		logger:  logger,
		timeout: defaultJobTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newCron(logger *slog.Logger, opts ...cron.Option) *cron.Cron {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	opts = append(opts, cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	return cron.New(opts...)
}

// AddJob registers job under a standard five-field cron expression.
// Registering the same name twice replaces the previous schedule.
func (s *Scheduler) AddJob(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[job.Name()]; ok {
		s.cron.Remove(existing.entryID)
	}

	id, err := s.cron.AddFunc(spec, func() { s.executeJob(job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}

	s.jobs[job.Name()] = scheduledJob{job: job, spec: spec, entryID: id}
	return nil
}

// Start starts the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()

	for name, scheduled := range s.jobs {
		s.logger.Info("job scheduled",
			slog.String("name", name),
			slog.String("spec", scheduled.spec),
			slog.Time("next_run", s.cron.Entry(scheduled.entryID).Next),
		)
	}
	s.logger.Info("job scheduler started", slog.Int("jobs", len(s.jobs)))
}

// executeJob executes a single job with error handling.
func (s *Scheduler) executeJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panic", slog.String("name", job.Name()), slog.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	s.logger.Debug("executing job", slog.String("name", job.Name()))

	start := time.Now()
	err := job.Execute(ctx)
	metrics.RecordJob(job.Name(), err, time.Since(start))

	if err != nil {
		s.logger.Error("job execution failed", slog.String("name", job.Name()), slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Info("job completed", slog.String("name", job.Name()), slog.Duration("duration", time.Since(start)))
}

// Stop stops the cron loop, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	// cancel first so running jobs unwind before cron waits on them
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("job scheduler stopped")
}

// RunOnce executes a registered job immediately and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context, jobName string) error {
	s.mu.RLock()
	scheduled, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job not found: %s", jobName)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := scheduled.job.Execute(ctx)
	metrics.RecordJob(jobName, err, time.Since(start))
	return err
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
