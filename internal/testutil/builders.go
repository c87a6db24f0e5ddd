package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/profilegate/screener/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest
// objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a new JobRequestBuilder with sensible defaults.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			SubjectID:   uuid.NewString(),
			Category:    model.CategoryEngineering,
			MaxAttempts: 3,
		},
	}
}

// WithSubjectID sets the subject ID.
func (b *JobRequestBuilder) WithSubjectID(subjectID string) *JobRequestBuilder {
	b.req.SubjectID = subjectID
	return b
}

// WithCategory sets the scoring category.
func (b *JobRequestBuilder) WithCategory(category model.Category) *JobRequestBuilder {
	b.req.Category = category
	return b
}

// WithMaxAttempts sets the attempt budget.
func (b *JobRequestBuilder) WithMaxAttempts(maxAttempts int) *JobRequestBuilder {
	b.req.MaxAttempts = maxAttempts
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	req := *b.req
	return &req
}

// JobBuilder provides a fluent interface for building ScoringJob objects for
// testing.
type JobBuilder struct {
	job *model.ScoringJob
}

// NewJob creates a new JobBuilder with sensible defaults.
func NewJob() *JobBuilder {
	now := time.Now().UTC()
	return &JobBuilder{
		job: &model.ScoringJob{
			ID:          uuid.NewString(),
			SubjectID:   uuid.NewString(),
			Category:    model.CategoryEngineering,
			Status:      model.JobStatusPending,
			MaxAttempts: 3,
			ScheduledAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// WithID sets the job ID.
func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

// WithSubjectID sets the subject ID.
func (b *JobBuilder) WithSubjectID(subjectID string) *JobBuilder {
	b.job.SubjectID = subjectID
	return b
}

// WithCategory sets the scoring category.
func (b *JobBuilder) WithCategory(category model.Category) *JobBuilder {
	b.job.Category = category
	return b
}

// WithStatus sets the job status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// WithAttempts sets the attempt counter.
func (b *JobBuilder) WithAttempts(attempts int) *JobBuilder {
	b.job.Attempts = attempts
	return b
}

// WithMaxAttempts sets the attempt budget.
func (b *JobBuilder) WithMaxAttempts(maxAttempts int) *JobBuilder {
	b.job.MaxAttempts = maxAttempts
	return b
}

// WithResult sets the stored result payload.
func (b *JobBuilder) WithResult(result json.RawMessage) *JobBuilder {
	b.job.Result = result
	return b
}

// WithScheduledAt sets the scheduled time.
func (b *JobBuilder) WithScheduledAt(at time.Time) *JobBuilder {
	b.job.ScheduledAt = at
	return b
}

// WithLeaseExpiresAt sets the lease expiry.
func (b *JobBuilder) WithLeaseExpiresAt(at time.Time) *JobBuilder {
	b.job.LeaseExpiresAt = &at
	return b
}

// Build returns the constructed ScoringJob.
func (b *JobBuilder) Build() *model.ScoringJob {
	job := *b.job
	return &job
}

// NewRecordSummary builds a complete record summary for gate and scorer tests.
func NewRecordSummary(id string) *model.RecordSummary {
	return &model.RecordSummary{
		ID:          id,
		DisplayName: "Jane Doe",
		Headline:    "Staff Software Engineer",
		Location:    "Minneapolis, MN",
	}
}
