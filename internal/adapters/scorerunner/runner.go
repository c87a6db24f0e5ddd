// Package scorerunner pulls pending scoring jobs and executes them against
// the LLM scorer with lease heartbeats and retry classification.
package scorerunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/profilegate/screener/internal/adapters/profileapi"
	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/observability/metrics"
	"github.com/profilegate/screener/internal/observability/statsd"
	"github.com/profilegate/screener/internal/service"
)

// RunnerOptions configures the score runner adapter.
type RunnerOptions struct {
	Jobs     *service.JobService  // Required
	Scorer   *service.Scorer      // Required
	Provider core.ProfileProvider // Required: record lookup for scoring input

	Lease       time.Duration // per-job lease duration; defaults to 60s
	Concurrency int           // number of worker goroutines; defaults to 1

	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner executes scoring jobs with a bounded worker pool. Each worker
// reserves one job at a time, keeps its lease alive while the LLM call is in
// flight, and applies the retryable-or-terminal failure policy.
type Runner struct {
	jobs     *service.JobService
	scorer   *service.Scorer
	provider core.ProfileProvider
	lease    time.Duration
	workers  int
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewRunner constructs a score runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}
	if opts.Scorer == nil {
		return nil, errors.New("Scorer is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("ProfileProvider is required")
	}

	lease := opts.Lease
	if lease <= 0 {
		lease = 60 * time.Second
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "score_runner")

	return &Runner{
		jobs:     opts.Jobs,
		scorer:   opts.Scorer,
		provider: opts.Provider,
		lease:    lease,
		workers:  workers,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is
// cancelled. The first fatal infrastructure error cancels all workers.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting score runner", "workers", r.workers, "lease", r.lease)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsub, notify := r.jobs.Subscribe()
	defer unsub()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.workerLoop(ctx, notify); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, r.lease)
		switch {
		case err == nil:
			if job != nil {
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.waitForNotify(ctx, notify) {
				return nil
			}
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return ctx.Err()
}

func (r *Runner) waitForNotify(ctx context.Context, notify <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case <-notify:
		return true
	}
}

func (r *Runner) processJob(ctx context.Context, job *model.ScoringJob) {
	start := time.Now()
	emit := func(transition, result string, err error) {
		metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
			Transition: transition,
			Result:     result,
			Attempt:    job.Attempts,
			Duration:   time.Since(start),
			Err:        err,
		})
	}

	// Keep the lease alive while the scoring call is in flight.
	stopHeartbeat := r.startHeartbeat(ctx, job.ID)
	outcome, err := r.executeAttempt(ctx, job)
	stopHeartbeat()

	if err != nil {
		retryable := service.IsRetryableScoringError(err)
		if _, failErr := r.jobs.Fail(ctx, job.ID, err.Error(), retryable); failErr != nil {
			r.logger.ErrorContext(ctx, "fail job error",
				"job_id", job.ID, "error", failErr, "original_error", err)
		}
		emit("failed", metrics.ResultError, err)
		return
	}

	if completed, err := r.jobs.Complete(ctx, job.ID, outcome); err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
		emit("completed", metrics.ResultError, err)
	} else {
		result := metrics.ResultNoop
		if completed {
			result = metrics.ResultSuccess
		}
		emit("completed", result, nil)
	}
}

// executeAttempt fetches the subject record and scores it against the job's
// category. Provider not-found and forbidden conditions are non-retryable;
// everything else from the provider is transient.
func (r *Runner) executeAttempt(ctx context.Context, job *model.ScoringJob) (*model.ScoringOutcome, error) {
	summary, err := r.provider.FetchRecord(ctx, job.SubjectID)
	switch {
	case errors.Is(err, profileapi.ErrRecordNotFound),
		errors.Is(err, profileapi.ErrRecordForbidden):
		return nil, &service.ScoringError{Err: fmt.Errorf("fetch subject record: %w", err)}
	case err != nil:
		return nil, &service.ScoringError{Retryable: true, Err: fmt.Errorf("fetch subject record: %w", err)}
	}

	return r.scorer.Score(ctx, summary, job.Category)
}

// startHeartbeat extends the job lease at half-lease intervals until the
// returned stop function is called.
func (r *Runner) startHeartbeat(ctx context.Context, jobID string) func() {
	interval := r.lease / 2
	if interval < time.Second {
		interval = time.Second
	}

	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				alive, err := r.jobs.Heartbeat(ctx, jobID, r.lease)
				if err != nil {
					r.logger.WarnContext(ctx, "heartbeat failed", "job_id", jobID, "error", err)
					continue
				}
				if !alive {
					// The job left running state underneath us; nothing
					// more to extend.
					return
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}
