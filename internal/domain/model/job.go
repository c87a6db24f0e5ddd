// Package model defines the core data types used throughout the screener
// gate and scoring job system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current status of a scoring job.
type JobStatus string

const (
	// JobStatusPending indicates a job is waiting to be picked up by a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a job is currently being scored.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job finished successfully and carries a result.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job failed terminally.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is one of the known states.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusRunning || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal returns true for states that admit no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler so status filters can be
// parsed from env vars and query strings.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", string(text))
	}
	*s = v
	return nil
}

// ErrNoJobsAvailable is returned when no pending jobs are available for reservation.
var ErrNoJobsAvailable = errors.New("no jobs available")

// ScoringJob is the central long-lived entity of the scoring engine. It is
// created when a record clears the quality gate and mutated only by the job
// engine while a worker holds its lease.
type ScoringJob struct {
	ID             string          `json:"id"                         db:"id"`
	SubjectID      string          `json:"subject_id"                 db:"subject_id"`
	Category       Category        `json:"category"                   db:"category"`
	Status         JobStatus       `json:"status"                     db:"status"`
	Attempts       int             `json:"attempts"                   db:"attempts"`
	MaxAttempts    int             `json:"max_attempts"               db:"max_attempts"`
	Result         json.RawMessage `json:"result,omitempty"           db:"result"`
	LastError      *string         `json:"last_error,omitempty"       db:"last_error"`
	ScheduledAt    time.Time       `json:"scheduled_at"               db:"scheduled_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	LeaseExpiresAt *time.Time      `json:"lease_expires_at,omitempty" db:"lease_expires_at"`
	CreatedAt      time.Time       `json:"created_at"                 db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"                 db:"updated_at"`
}

// CreateJobRequest represents a request to create a new scoring job.
type CreateJobRequest struct {
	SubjectID   string   `json:"subject_id"`
	Category    Category `json:"category"`
	MaxAttempts int      `json:"max_attempts,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if strings.TrimSpace(r.SubjectID) == "" {
		return errors.New("subject id is required")
	}
	if _, err := uuid.Parse(r.SubjectID); err != nil {
		return errors.New("subject id must be a valid UUID")
	}
	if !r.Category.Valid() {
		return fmt.Errorf("invalid category: %q", r.Category)
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// JobStats represents counts of jobs per state.
type JobStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// JobListOptions filters and paginates job listings.
type JobListOptions struct {
	Status *JobStatus
	Limit  int
	Offset int
}

// ScoringOutcome is the structured payload stored on a completed job.
type ScoringOutcome struct {
	Scores    map[string]float64 `json:"scores"`
	Rationale string             `json:"rationale"`
}
