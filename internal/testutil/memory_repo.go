package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/data"
	"github.com/profilegate/screener/internal/domain/model"
)

// MemoryJobRepo is an in-memory core.JobRepository with the same transition
// semantics as the PostgreSQL implementation: compare-and-set status changes,
// attempt counting on reservation, retry backoff on retryable failures, and
// a single-active-job-per-subject constraint. It lets worker and service
// tests run without a database.
type MemoryJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ScoringJob

	maxAttempts int
	retryDelay  time.Duration
	notify      chan struct{}

	// Now is the clock used for scheduling decisions. Tests may override it.
	Now func() time.Time
}

// NewMemoryJobRepo constructs an in-memory repository with the given default
// attempt budget and retry backoff unit.
func NewMemoryJobRepo(maxAttempts int, retryDelay time.Duration) *MemoryJobRepo {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &MemoryJobRepo{
		jobs:        make(map[string]*model.ScoringJob),
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		notify:      make(chan struct{}, 1),
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ core.JobRepository = (*MemoryJobRepo)(nil)

// Create inserts a pending job, enforcing one active job per subject.
func (r *MemoryJobRepo) Create(_ context.Context, req *model.CreateJobRequest) (*model.ScoringJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, job := range r.jobs {
		if job.SubjectID == req.SubjectID && !job.Status.Terminal() {
			return nil, data.ErrDuplicateActiveJob
		}
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = r.maxAttempts
	}

	now := r.Now()
	job := &model.ScoringJob{
		ID:          uuid.NewString(),
		SubjectID:   req.SubjectID,
		Category:    req.Category,
		Status:      model.JobStatusPending,
		MaxAttempts: maxAttempts,
		ScheduledAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.jobs[job.ID] = job

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return cloneJob(job), nil
}

// GetByID returns the job or data.ErrJobNotFound.
func (r *MemoryJobRepo) GetByID(_ context.Context, id string) (*model.ScoringJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// List returns jobs in newest-first order with optional status filtering.
func (r *MemoryJobRepo) List(_ context.Context, opts *model.JobListOptions) ([]*model.ScoringJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []*model.ScoringJob
	for _, job := range r.jobs {
		if opts != nil && opts.Status != nil && job.Status != *opts.Status {
			continue
		}
		all = append(all, cloneJob(job))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if opts == nil {
		return all, nil
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(all) {
			return nil, nil
		}
		all = all[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, nil
}

// Stats counts jobs per state.
func (r *MemoryJobRepo) Stats(_ context.Context) (*model.JobStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := &model.JobStats{}
	for _, job := range r.jobs {
		switch job.Status {
		case model.JobStatusPending:
			stats.Pending++
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// ReserveNext requeues expired leases, then moves the oldest due pending job
// to running with an incremented attempt counter.
func (r *MemoryJobRepo) ReserveNext(_ context.Context, leaseSeconds int) (*model.ScoringJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	r.requeueExpiredLocked(now)

	var next *model.ScoringJob
	for _, job := range r.jobs {
		if job.Status != model.JobStatusPending || job.ScheduledAt.After(now) {
			continue
		}
		if next == nil || job.ScheduledAt.Before(next.ScheduledAt) {
			next = job
		}
	}
	if next == nil {
		return nil, model.ErrNoJobsAvailable
	}

	next.Status = model.JobStatusRunning
	next.Attempts++
	if next.StartedAt == nil {
		started := now
		next.StartedAt = &started
	}
	expiry := now.Add(time.Duration(leaseSeconds) * time.Second)
	next.LeaseExpiresAt = &expiry
	next.UpdatedAt = now
	return cloneJob(next), nil
}

func (r *MemoryJobRepo) requeueExpiredLocked(now time.Time) {
	for _, job := range r.jobs {
		if job.Status != model.JobStatusRunning || job.LeaseExpiresAt == nil || job.LeaseExpiresAt.After(now) {
			continue
		}
		job.LeaseExpiresAt = nil
		job.UpdatedAt = now
		if job.Attempts >= job.MaxAttempts {
			msg := "lease expired with retry budget exhausted"
			job.Status = model.JobStatusFailed
			job.LastError = &msg
			completed := now
			job.CompletedAt = &completed
			continue
		}
		job.Status = model.JobStatusPending
		job.ScheduledAt = now
	}
}

// Heartbeat extends the lease of a running job.
func (r *MemoryJobRepo) Heartbeat(_ context.Context, jobID string, leaseSeconds int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	now := r.Now()
	expiry := now.Add(time.Duration(leaseSeconds) * time.Second)
	job.LeaseExpiresAt = &expiry
	job.UpdatedAt = now
	return true, nil
}

// Complete transitions running to completed and stores the result.
func (r *MemoryJobRepo) Complete(_ context.Context, id string, result []byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	now := r.Now()
	job.Status = model.JobStatusCompleted
	job.Result = append([]byte(nil), result...)
	job.LastError = nil
	job.LeaseExpiresAt = nil
	job.CompletedAt = &now
	job.UpdatedAt = now
	return true, nil
}

// Fail records a failed attempt, requeueing with backoff while retryable and
// budget remains.
func (r *MemoryJobRepo) Fail(_ context.Context, params core.FailJobParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[params.ID]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}

	now := r.Now()
	errMsg := params.ErrMsg
	job.LastError = &errMsg
	job.LeaseExpiresAt = nil
	job.UpdatedAt = now

	if !params.Retryable || job.Attempts >= job.MaxAttempts {
		job.Status = model.JobStatusFailed
		job.CompletedAt = &now
		return true, nil
	}

	job.Status = model.JobStatusPending
	job.ScheduledAt = now.Add(time.Duration(job.Attempts) * r.retryDelay)
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return true, nil
}

// WaitForNotification blocks until a job is created or requeued, or the
// context ends.
func (r *MemoryJobRepo) WaitForNotification(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.notify:
		return nil
	}
}

func cloneJob(job *model.ScoringJob) *model.ScoringJob {
	out := *job
	if job.Result != nil {
		out.Result = append([]byte(nil), job.Result...)
	}
	if job.LastError != nil {
		v := *job.LastError
		out.LastError = &v
	}
	for _, pair := range []struct {
		src *time.Time
		dst **time.Time
	}{
		{job.StartedAt, &out.StartedAt},
		{job.CompletedAt, &out.CompletedAt},
		{job.LeaseExpiresAt, &out.LeaseExpiresAt},
	} {
		if pair.src != nil {
			v := *pair.src
			*pair.dst = &v
		}
	}
	return &out
}
