// Package core defines the ports between the service layer and its
// collaborators: the job persistence layer, the external profile provider,
// the LLM provider, and the classification score cache. Service
// implementations depend on these interfaces, never on concrete types.
package core

import (
	"context"
	"time"

	"github.com/profilegate/screener/internal/domain/model"
)

// FailJobParams groups parameters for JobRepository.Fail.
type FailJobParams struct {
	ID        string
	ErrMsg    string
	Retryable bool
}

// JobRepository defines the persistence contract for scoring jobs. All
// status transitions are compare-and-set on the current status so that two
// workers can never double-run or double-complete the same job.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.ScoringJob, error)
	GetByID(ctx context.Context, id string) (*model.ScoringJob, error)
	List(ctx context.Context, opts *model.JobListOptions) ([]*model.ScoringJob, error)
	Stats(ctx context.Context) (*model.JobStats, error)

	// ReserveNext atomically moves the oldest due pending job to running,
	// increments its attempt counter, and sets a lease. Returns
	// model.ErrNoJobsAvailable when nothing is due.
	ReserveNext(ctx context.Context, leaseSeconds int) (*model.ScoringJob, error)

	// Heartbeat extends the lease of a running job. Returns false when the
	// job is no longer running.
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)

	// Complete transitions running -> completed and stores the result.
	Complete(ctx context.Context, id string, result []byte) (bool, error)

	// Fail records a failed attempt. Retryable failures requeue the job
	// with backoff until attempts reach max_attempts; non-retryable
	// failures and exhausted budgets transition to terminal failed.
	Fail(ctx context.Context, params FailJobParams) (bool, error)

	// WaitForNotification blocks until the store signals a newly available
	// job or the context ends.
	WaitForNotification(ctx context.Context) error
}

// DeleteOldJobsParams groups parameters for ReaperRepository.DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the job cleanup contract.
type ReaperRepository interface {
	// FailStalePendingJobs marks pending jobs older than maxAge as failed.
	// Processes up to batchSize jobs per call and returns the number failed.
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// DeleteOldJobs deletes terminal jobs older than maxAge, up to
	// batchSize per call, returning the number deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}

// ProfileProvider fetches external profile records. Implementations map
// provider-level not-found/forbidden conditions onto the sentinel errors in
// the adapters package so the prober can produce specific failure reasons.
type ProfileProvider interface {
	FetchRecord(ctx context.Context, identifier string) (*model.RecordSummary, error)
}

// CompletionRequest is a single LLM call with deterministic input.
type CompletionRequest struct {
	System string
	Prompt string
	// JSONResponse requests strict JSON output from the provider.
	JSONResponse bool
}

// LLMClient wraps the external LLM provider. Errors carry retryability via
// the llm adapter's classification helpers.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CategoryScore is one cached classifier outcome.
type CategoryScore struct {
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// ScoreCache stores per-(record, category) compatibility scores so repeated
// gate runs for the same record do not re-spend LLM calls. A nil-safe
// implementation is acceptable; cache errors are advisory.
type ScoreCache interface {
	Get(ctx context.Context, recordID string, category model.Category) (*CategoryScore, error)
	Set(ctx context.Context, recordID string, category model.Category, score CategoryScore) error
}
