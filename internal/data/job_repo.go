// Package data implements the persistence layer: the pgx-backed scoring job
// repository and the redis-backed classification score cache.
package data

import (
	"database/sql"
	"errors"
	"log/slog"
)

var (
	// ErrJobNotFound is returned when a scoring job does not exist.
	ErrJobNotFound = errors.New("scoring job not found")
	// ErrDuplicateActiveJob is returned when a subject already has a
	// pending or running scoring job.
	ErrDuplicateActiveJob = errors.New("subject already has an active scoring job")
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	// RetryDelaySeconds is the base backoff unit between attempts; the
	// actual delay grows with the attempt count.
	RetryDelaySeconds int
	// DefaultMaxAttempts applies when a create request does not set one.
	DefaultMaxAttempts int
	Logger             *slog.Logger
	TimeProvider       TimeProvider
}

// JobRepo provides database operations for scoring job management.
type JobRepo struct {
	DB           *sql.DB
	cfg          RepoConfig
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a JobRepo with the given database pool and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		cfg:          cfg,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  subject_id,
  category,
  status,
  attempts,
  max_attempts,
  result,
  last_error,
  scheduled_at,
  started_at,
  completed_at,
  lease_expires_at,
  created_at,
  updated_at
`

const defaultRetryDelaySeconds = 30

func (r *JobRepo) retryDelay() int {
	if r.cfg.RetryDelaySeconds > 0 {
		return r.cfg.RetryDelaySeconds
	}
	return defaultRetryDelaySeconds
}

const fallbackMaxAttempts = 3

func (r *JobRepo) defaultMaxAttempts() int {
	if r.cfg.DefaultMaxAttempts > 0 {
		return r.cfg.DefaultMaxAttempts
	}
	return fallbackMaxAttempts
}
