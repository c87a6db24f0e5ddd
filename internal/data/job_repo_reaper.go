package data

import (
	"context"
	"fmt"
	"time"

	"github.com/profilegate/screener/internal/core"
)

// FailStalePendingJobs marks pending jobs whose scheduled time is more than
// maxAge in the past as failed. These are jobs nothing ever picked up, most
// often because the worker fleet was down.
func (r *JobRepo) FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 {
		return 0, fmt.Errorf("maxAge must be positive, got %v", maxAge)
	}
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be positive, got %d", batchSize)
	}

	currentTime := r.timeProvider.Now().UTC()
	cutoff := currentTime.Add(-maxAge)

	res, err := r.DB.ExecContext(ctx, `
      UPDATE scoring_jobs
      SET status = 'failed',
          last_error = 'expired before any worker picked it up',
          completed_at = $2,
          updated_at = $2
      WHERE id IN (
        SELECT id FROM scoring_jobs
        WHERE status = 'pending' AND scheduled_at < $1
        ORDER BY scheduled_at ASC
        LIMIT $3
        FOR UPDATE SKIP LOCKED
      )
    `, cutoff, currentTime, batchSize)
	if err != nil {
		return 0, fmt.Errorf("fail stale pending jobs: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail stale rows affected: %w", err)
	}
	return rowsAffected, nil
}

// DeleteOldJobs removes terminal jobs older than MaxAge, up to BatchSize per
// call. Only terminal states are eligible; pending and running rows are never
// deleted here.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("only terminal jobs can be deleted, got status %q", params.Status)
	}
	if params.MaxAge <= 0 {
		return 0, fmt.Errorf("MaxAge must be positive, got %v", params.MaxAge)
	}
	if params.BatchSize <= 0 {
		return 0, fmt.Errorf("BatchSize must be positive, got %d", params.BatchSize)
	}

	cutoff := r.timeProvider.Now().UTC().Add(-params.MaxAge)

	res, err := r.DB.ExecContext(ctx, `
      DELETE FROM scoring_jobs
      WHERE id IN (
        SELECT id FROM scoring_jobs
        WHERE status = $1 AND completed_at IS NOT NULL AND completed_at < $2
        ORDER BY completed_at ASC
        LIMIT $3
        FOR UPDATE SKIP LOCKED
      )
    `, params.Status, cutoff, params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old rows affected: %w", err)
	}
	return rowsAffected, nil
}
