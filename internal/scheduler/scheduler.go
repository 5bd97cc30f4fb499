package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/academichub/backend-go/internal/database/service"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/worker"
)

// DefaultRunTimeout bounds a single cleanup pass
const DefaultRunTimeout = 5 * time.Minute

// Job deletes one kind of stale row and reports how many went away
type Job struct {
	Name  string
	Table string
	Run   func(ctx context.Context) (int64, error)
}

// CleanupJobs builds the token housekeeping jobs
func CleanupJobs(
	resets service.PasswordResetService,
	revocations service.RevocationService,
	refreshTokens service.RefreshTokenService,
) []Job {
	return []Job{
		{Name: "expired password reset tokens", Table: "password_reset_tokens", Run: resets.CleanupExpiredTokens},
		{Name: "expired revoked tokens", Table: "revoked_tokens", Run: revocations.PurgeExpired},
		{Name: "expired refresh tokens", Table: "refresh_tokens", Run: refreshTokens.PurgeExpired},
	}
}

// Scheduler runs cleanup jobs on a cron schedule through the worker pool
type Scheduler struct {
	cron    *cron.Cron
	pool    *worker.Pool
	jobs    []Job
	timeout time.Duration
	running atomic.Bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New registers the jobs under a standard five-field cron expression evaluated in UTC
func New(schedule string, pool *worker.Pool, m *metrics.Metrics, logger *slog.Logger, jobs ...Job) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		pool:    pool,
		jobs:    jobs,
		timeout: DefaultRunTimeout,
		metrics: m,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(schedule, s.trigger); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing the schedule
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("⏰ [Scheduler] Cleanup scheduler started", "jobs", len(s.jobs))
}

// Stop halts the schedule. The returned context is done once a running trigger returns.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("🛑 [Scheduler] Stopping cleanup scheduler")
	return s.cron.Stop()
}

func (s *Scheduler) trigger() {
	s.pool.SubmitWithTimeout("token-cleanup", s.timeout, s.RunOnce)
}

// RunOnce executes every job. A failing job does not stop the rest.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("⚠️ [Scheduler] Previous cleanup still running, skipping")
		return nil
	}
	defer s.running.Store(false)

	start := time.Now()
	s.logger.Info("🧹 [Scheduler] Starting token cleanup")

	var errs []error
	var total int64
	for _, job := range s.jobs {
		rows, err := job.Run(ctx)
		if err != nil {
			s.logger.Error("❌ [Scheduler] Cleanup job failed", "job", job.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
			continue
		}
		s.metrics.ObserveCleanup(job.Table, rows)
		total += rows
		s.logger.Debug("✅ [Scheduler] Cleanup job finished", "job", job.Name, "rows", rows)
	}

	if len(errs) > 0 {
		s.metrics.ObserveCleanupRun(metrics.OutcomeError)
		return errors.Join(errs...)
	}

	s.metrics.ObserveCleanupRun(metrics.OutcomeSuccess)
	s.logger.Info("✅ [Scheduler] Token cleanup completed", "rows", total, "duration", time.Since(start))
	return nil
}
