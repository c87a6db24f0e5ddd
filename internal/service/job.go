package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/profilegate/screener/internal/core"
	domainjob "github.com/profilegate/screener/internal/domain/job"
	"github.com/profilegate/screener/internal/domain/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository        // Required: job repository
	DefaultLease    time.Duration             // Required unless LeasePolicy set
	Logger          *slog.Logger              // Optional: structured logger
	LeasePolicy     *domainjob.LeasePolicy    // Optional: override default lease policy
	Notifier        domainjob.Notifier        // Optional: custom job availability notifier
	NotifierOptions domainjob.NotifierOptions // Optional: configure default notifier behaviour
}

// JobService provides business logic for scoring job operations: creation,
// reservation with lease normalization, state transitions, and the pub/sub
// notification fan-out for job availability.
type JobService struct {
	repo        core.JobRepository
	leasePolicy *domainjob.LeasePolicy
	notifier    domainjob.Notifier
	logger      *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var leasePolicy *domainjob.LeasePolicy
	switch {
	case opts.LeasePolicy != nil:
		leasePolicy = opts.LeasePolicy
	case opts.DefaultLease > 0:
		var err error
		leasePolicy, err = domainjob.NewLeasePolicy(opts.DefaultLease)
		if err != nil {
			return nil, fmt.Errorf("create lease policy: %w", err)
		}
	default:
		return nil, errors.New("DefaultLease must be positive")
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		var err error
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:        opts.Repo,
		leasePolicy: leasePolicy,
		notifier:    notifier,
		logger:      logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error. Use in
// startup wiring only.
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Create creates a new pending scoring job. It returns synchronously; the
// caller never waits for scoring.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.ScoringJob, error) {
	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job created",
			"id", job.ID,
			"subject_id", job.SubjectID,
			"category", job.Category,
		)
	}
	return job, nil
}

// GetByID retrieves a scoring job by its ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.ScoringJob, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns jobs matching the given options with clamped pagination.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.ScoringJob, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}
	if opts.Limit <= 0 || opts.Limit > maxListLimit {
		opts.Limit = defaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.repo.List(ctx, opts)
}

// Stats returns counts of jobs per state.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	return s.repo.Stats(ctx)
}

// ReserveNext reserves the next available scoring job for processing.
func (s *JobService) ReserveNext(ctx context.Context, lease time.Duration) (*model.ScoringJob, error) {
	decision := s.leasePolicy.Resolve(lease)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second lease duration to 1 second",
			"requested_duration", decision.Requested)
	}

	job, err := s.repo.ReserveNext(ctx, decision.Seconds)
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve next job: %w", err)
	}

	if s.logger != nil && job != nil {
		s.logger.DebugContext(ctx, "job reserved",
			"id", job.ID,
			"attempt", job.Attempts,
			"lease_seconds", decision.Seconds,
		)
	}
	return job, nil
}

// Heartbeat extends the lease on a job to indicate it is still being processed.
func (s *JobService) Heartbeat(ctx context.Context, id string, extend time.Duration) (bool, error) {
	decision := s.leasePolicy.Resolve(extend)
	if decision.Clamped() && s.logger != nil {
		s.logger.DebugContext(ctx, "clamped sub-second heartbeat duration to 1 second",
			"requested_duration", decision.Requested,
			"job_id", id)
	}

	updated, err := s.repo.Heartbeat(ctx, id, decision.Seconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", id, err)
	}
	return updated, nil
}

// Complete marks a job completed with the given scoring outcome.
func (s *JobService) Complete(ctx context.Context, id string, outcome *model.ScoringOutcome) (bool, error) {
	if outcome == nil {
		return false, errors.New("scoring outcome is required")
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return false, fmt.Errorf("marshal scoring outcome: %w", err)
	}

	completed, err := s.repo.Complete(ctx, id, payload)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}

	if s.logger != nil && completed {
		s.logger.DebugContext(ctx, "job completed", "id", id)
	}
	return completed, nil
}

// Fail records a failed attempt on a job. Retryable failures requeue the
// job with backoff until the attempt budget runs out.
func (s *JobService) Fail(ctx context.Context, id, errMsg string, retryable bool) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	failed, err := s.repo.Fail(ctx, core.FailJobParams{ID: id, ErrMsg: errMsg, Retryable: retryable})
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}

	if s.logger != nil && failed {
		s.logger.DebugContext(ctx, "job attempt failed",
			"id", id,
			"retryable", retryable,
			"error", errMsg,
		)
	}
	return failed, nil
}

// Subscribe creates a subscription for job availability notifications.
// Returns an unsubscribe function and a channel that receives notifications.
func (s *JobService) Subscribe() (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe()
}

// StopNotifier stops the background notifier and closes all subscriber channels.
func (s *JobService) StopNotifier() {
	if s.notifier != nil {
		s.notifier.StopAll()
	}
}
