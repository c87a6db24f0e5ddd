package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/profilegate/screener/config"
	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/domain/model"
	obserrors "github.com/profilegate/screener/internal/observability/errors"
	"github.com/profilegate/screener/internal/observability/metrics"
	"github.com/profilegate/screener/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required: reaper repository
	Config  config.ReaperConfig   // Required: reaper configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink
}

// ReaperService performs periodic job cleanup: failing stale pending jobs
// nothing ever picked up and deleting old terminal jobs to bound table size.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"pending_max_age", opts.Config.PendingMaxAge,
			"completed_max_age", opts.Config.CompletedMaxAge,
			"failed_max_age", opts.Config.FailedMaxAge,
		)
	}

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Jitter startup so multiple instances don't sweep in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.runCleanup(ctx); err != nil && !isContextCancellation(err) {
		s.logCleanupError(err, "initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runCleanup(ctx); err != nil && !isContextCancellation(err) {
				// Keep running despite errors.
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// waitWithJitter delays startup by up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos))

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

type cleanupStep struct {
	label string
	fn    func(context.Context) (int64, error)
}

// runCleanup performs all cleanup operations, continuing past per-step
// failures and joining their errors.
func (s *ReaperService) runCleanup(ctx context.Context) error {
	start := time.Now()
	var errs []error

	steps := []cleanupStep{
		{label: "fail stale pending jobs", fn: s.failStalePendingJobs},
		{label: "delete old completed jobs", fn: func(ctx context.Context) (int64, error) {
			return s.deleteOldJobs(ctx, model.JobStatusCompleted, s.config.CompletedMaxAge)
		}},
		{label: "delete old failed jobs", fn: func(ctx context.Context) (int64, error) {
			return s.deleteOldJobs(ctx, model.JobStatusFailed, s.config.FailedMaxAge)
		}},
	}

	for _, step := range steps {
		count, err := step.fn(ctx)
		s.emitStepMetric(step.label, count, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.label, err))
		}
	}

	if s.metrics != nil {
		s.metrics.Timing("reaper.cleanup_duration", time.Since(start), nil)
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}
	return nil
}

func (s *ReaperService) emitStepMetric(label string, count int64, err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	tags := map[string]string{"step": label}
	if err != nil {
		result = metrics.ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	} else if count == 0 {
		result = metrics.ResultNoop
	}
	tags["result"] = result
	s.metrics.Count("reaper.cleaned", count, tags)
}

// failStalePendingJobs marks pending jobs older than the configured max age
// as failed, looping until no more rows are affected.
func (s *ReaperService) failStalePendingJobs(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.repo.FailStalePendingJobs(ctx, s.config.PendingMaxAge, s.config.BatchSize)
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "failed stale pending jobs",
			"count", totalCount,
			"max_age", s.config.PendingMaxAge,
		)
	}
	return totalCount, nil
}

// deleteOldJobs deletes terminal jobs of the given status older than maxAge,
// looping until no more rows are affected.
func (s *ReaperService) deleteOldJobs(
	ctx context.Context,
	status model.JobStatus,
	maxAge time.Duration,
) (int64, error) {
	var totalCount int64
	for {
		count, err := s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
			Status:    status,
			MaxAge:    maxAge,
			BatchSize: s.config.BatchSize,
		})
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted old jobs",
			"status", status,
			"count", totalCount,
			"max_age", maxAge,
		)
	}
	return totalCount, nil
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if s.logger != nil {
		s.logger.Error("reaper "+label+" failed", "error", err)
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
