// Package jobs owns the scheduled maintenance passes: the daily rank
// recomputation and the monthly point reset. Failures are caught at the job
// boundary and logged; a failed pass is retried at the next scheduled run,
// never in between.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/ladder/internal/adapters/cache"
	"github.com/okian/ladder/internal/adapters/store"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Job names used for logging and metric labels.
const (
	jobRecompute = "daily_recompute"
	jobReset     = "monthly_reset"
)

// Default schedules, standard five-field cron expressions.
const (
	defaultRecomputeSchedule = "0 0 * * *" // midnight, daily
	defaultResetSchedule     = "0 0 1 * *" // midnight, first of the month
	defaultRunTimeout        = 10 * time.Minute
)

// Scheduler runs the maintenance jobs against the store and the cache.
type Scheduler struct {
	cron  *cron.Cron
	store store.Store
	cache cache.Cache

	recomputeSchedule string
	resetSchedule     string
	runTimeout        time.Duration

	logger logger.Logger
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithRecomputeSchedule sets the cron expression for the daily rank pass.
func WithRecomputeSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.recomputeSchedule = spec
		}
	}
}

// WithResetSchedule sets the cron expression for the monthly point reset.
func WithResetSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.resetSchedule = spec
		}
	}
}

// WithRunTimeout bounds a single job run.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Scheduler over the store and cache.
func New(st store.Store, c cache.Cache, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:             st,
		cache:             c,
		recomputeSchedule: defaultRecomputeSchedule,
		resetSchedule:     defaultResetSchedule,
		runTimeout:        defaultRunTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("jobs")
	}

	return s
}

// Start registers both jobs and starts the cron loop. Invalid schedules are
// reported here, before any job has run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.recomputeSchedule, func() {
		s.runGuarded(jobRecompute, s.RunRecomputeOnce)
	}); err != nil {
		return fmt.Errorf("register recompute schedule %q: %w", s.recomputeSchedule, err)
	}

	if _, err := s.cron.AddFunc(s.resetSchedule, func() {
		s.runGuarded(jobReset, s.RunResetOnce)
	}); err != nil {
		return fmt.Errorf("register reset schedule %q: %w", s.resetSchedule, err)
	}

	s.cron.Start()
	s.logger.Info(ctx, "job scheduler started",
		logger.String("recompute", s.recomputeSchedule),
		logger.String("reset", s.resetSchedule),
	)

	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info(context.Background(), "job scheduler stopped")
}

// runGuarded is the job boundary: panics and errors end here.
func (s *Scheduler) runGuarded(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordJobFailure(name)
			s.logger.Error(ctx, "job panicked",
				logger.String("job", name),
				logger.Any("panic", r),
			)
		}
	}()

	if err := run(ctx); err != nil {
		metrics.RecordJobFailure(name)
		s.logger.Error(ctx, "job failed",
			logger.String("job", name),
			logger.Error(err),
		)
	}
}

// RunRecomputeOnce performs one daily rank pass: read the population in
// rank order, persist contiguous daily ranks under a single transaction,
// then reload the cache from the same ordered read. Exposed for tests and
// manual runs.
func (s *Scheduler) RunRecomputeOnce(ctx context.Context) error {
	start := time.Now()
	metrics.RecordJobRun(jobRecompute)

	members, err := s.store.ListScoresDesc(ctx)
	if err != nil {
		return fmt.Errorf("list scores: %w", err)
	}

	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	if err := s.store.UpdateRanks(ctx, ids); err != nil {
		return fmt.Errorf("update ranks: %w", err)
	}

	// The ordered read that produced the ranks also repopulates the cache,
	// so a cold cache recovers on the next pass.
	cm := make([]cache.Member, len(members))
	for i, m := range members {
		cm[i] = cache.Member{UserID: m.UserID, Points: m.Points}
	}
	if err := s.cache.Reload(ctx, cm); err != nil {
		return fmt.Errorf("reload cache: %w", err)
	}

	elapsed := time.Since(start)
	metrics.RecordJobDuration(jobRecompute, float64(elapsed.Milliseconds()))
	metrics.UpdateJobLastSuccess(jobRecompute, float64(time.Now().Unix()))
	s.logger.Info(ctx, "daily rank pass completed",
		logger.Int("population", len(members)),
		logger.Duration("elapsed", elapsed),
	)

	return nil
}

// RunResetOnce zeroes every point total and reloads the cache to match.
// Exposed for tests and manual runs.
func (s *Scheduler) RunResetOnce(ctx context.Context) error {
	start := time.Now()
	metrics.RecordJobRun(jobReset)

	if err := s.store.ResetAllPoints(ctx); err != nil {
		return fmt.Errorf("reset points: %w", err)
	}

	members, err := s.store.ListScoresDesc(ctx)
	if err != nil {
		return fmt.Errorf("list scores after reset: %w", err)
	}
	cm := make([]cache.Member, len(members))
	for i, m := range members {
		cm[i] = cache.Member{UserID: m.UserID, Points: m.Points}
	}
	if err := s.cache.Reload(ctx, cm); err != nil {
		return fmt.Errorf("reload cache: %w", err)
	}

	elapsed := time.Since(start)
	metrics.RecordJobDuration(jobReset, float64(elapsed.Milliseconds()))
	metrics.UpdateJobLastSuccess(jobReset, float64(time.Now().Unix()))
	s.logger.Info(ctx, "monthly point reset completed",
		logger.Int("population", len(members)),
		logger.Duration("elapsed", elapsed),
	)

	return nil
}
