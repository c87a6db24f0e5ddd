package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/data/pgxutil"
	"github.com/profilegate/screener/internal/domain/model"
)

// notifyChannel is the pg NOTIFY channel signalled on every job insert.
const notifyChannel = "scoring_job_added"

// SQL used by ReserveNext to atomically reserve the oldest due pending job.
// The attempt counter is incremented here because an attempt begins the
// moment a worker takes the lease, not when it finishes.
const reserveNextUpdateSQL = `
  WITH cte AS (
    SELECT id FROM scoring_jobs
    WHERE status = 'pending' AND scheduled_at <= $1
    ORDER BY scheduled_at ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE scoring_jobs j
  SET
    status = 'running',
    attempts = j.attempts + 1,
    started_at = COALESCE(j.started_at, $2),
    lease_expires_at = $3,
    updated_at = $4
  FROM cte
  WHERE j.id = cte.id
  RETURNING j.id, j.subject_id, j.category, j.status, j.attempts, j.max_attempts, j.result, j.last_error, j.scheduled_at, j.started_at, j.completed_at, j.lease_expires_at, j.created_at, j.updated_at`

// Create inserts a new pending scoring job and signals its availability.
func (r *JobRepo) Create(
	ctx context.Context,
	req *model.CreateJobRequest,
) (*model.ScoringJob, error) {
	if req == nil {
		return nil, errors.New("create job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = r.defaultMaxAttempts()
	}

	var job *model.ScoringJob
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			rows, err := tx.Query(ctx, `
              INSERT INTO scoring_jobs(subject_id, category, status, max_attempts, scheduled_at)
              VALUES ($1, $2, 'pending', $3, $4)
              RETURNING `+jobColumns,
				req.SubjectID, req.Category, maxAttempts, now,
			)
			if err != nil {
				return fmt.Errorf("insert job: %w", err)
			}
			j, collectErr := collectJobFromRows(rows)
			rows.Close()
			if collectErr != nil {
				return fmt.Errorf("collect job: %w", collectErr)
			}

			if _, execErr := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, notifyChannel, j.ID); execErr != nil {
				return fmt.Errorf("send job notification: %w", execErr)
			}

			job = j
			return nil
		},
	})
	if txErr != nil {
		if isUniqueViolation(txErr) {
			return nil, ErrDuplicateActiveJob
		}
		return nil, txErr
	}
	return job, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.ScoringJob, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return job, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	result                                 []byte
	lastError                              sql.NullString
	startedAt, completedAt, leaseExpiresAt sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.ScoringJob) error {
	return scanner.Scan(
		&job.ID,
		&job.SubjectID,
		&job.Category,
		&job.Status,
		&job.Attempts,
		&job.MaxAttempts,
		&d.result,
		&d.lastError,
		&job.ScheduledAt,
		&d.startedAt,
		&d.completedAt,
		&d.leaseExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.ScoringJob) {
	if len(d.result) > 0 {
		job.Result = append(json.RawMessage(nil), d.result...)
	}
	job.LastError = cloneNullableString(d.lastError)
	job.StartedAt = cloneNullableTime(d.startedAt)
	job.CompletedAt = cloneNullableTime(d.completedAt)
	job.LeaseExpiresAt = cloneNullableTime(d.leaseExpiresAt)
}

func scanJobFromRow(scanner jobRowScanner) (*model.ScoringJob, error) {
	job := &model.ScoringJob{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}
	data.apply(job)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Advisory lock key for requeueExpired so concurrent workers don't race the
// requeue sweep.
const (
	advisoryLockRequeueMajor int64 = 2001
	advisoryLockRequeueMinor int64 = 1
)

// requeueExpired moves running jobs with expired leases back to pending and
// returns the number of jobs requeued. Attempts stay as-is: the expired
// attempt already counted when it was reserved.
func (r *JobRepo) requeueExpired(ctx context.Context) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockRequeueMajor, advisoryLockRequeueMinor,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			res, err := tx.ExecContext(ctx, `
              UPDATE scoring_jobs
              SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
                  last_error = CASE WHEN attempts >= max_attempts THEN 'lease expired with retry budget exhausted' ELSE last_error END,
                  completed_at = CASE WHEN attempts >= max_attempts THEN $2::timestamptz ELSE completed_at END,
                  lease_expires_at = NULL,
                  updated_at = $2
              WHERE status = 'running'
                AND lease_expires_at IS NOT NULL
                AND lease_expires_at < $1
            `, currentTime.UTC(), currentTime.UTC())
			if err != nil {
				return fmt.Errorf("requeue expired: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// ReserveNext reserves the next available pending job for processing.
func (r *JobRepo) ReserveNext(ctx context.Context, leaseSeconds int) (*model.ScoringJob, error) {
	if leaseSeconds <= 0 {
		return nil, errors.New("leaseSeconds must be positive")
	}

	if _, err := r.requeueExpired(ctx); err != nil {
		return nil, fmt.Errorf("requeue expired jobs: %w", err)
	}

	var job *model.ScoringJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now()
			leaseExpiresAt := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

			rows, qerr := tx.Query(
				ctx,
				reserveNextUpdateSQL,
				currentTime.UTC(),
				currentTime.UTC(),
				leaseExpiresAt.UTC(),
				currentTime.UTC(),
			)
			if qerr != nil {
				return fmt.Errorf("reserve job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("reserve job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return job, nil
}

// Heartbeat refreshes the lease on a running job.
func (r *JobRepo) Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error) {
	if leaseSeconds <= 0 {
		return false, errors.New("leaseSeconds must be positive")
	}

	currentTime := r.timeProvider.Now().UTC()
	leaseExpiration := currentTime.Add(time.Duration(leaseSeconds) * time.Second)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE scoring_jobs
		SET lease_expires_at = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'running'
	`, jobID, leaseExpiration, currentTime)
	if err != nil {
		return false, fmt.Errorf("heartbeat job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("heartbeat rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Complete marks a running job as completed and stores its result. The
// result column is written only here, which keeps the result-iff-completed
// invariant at the schema level.
func (r *JobRepo) Complete(ctx context.Context, id string, result []byte) (bool, error) {
	if len(result) == 0 {
		return false, errors.New("result payload is required")
	}

	currentTime := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE scoring_jobs
		SET status = 'completed',
		    result = $2,
		    completed_at = $3,
		    updated_at = $3,
		    lease_expires_at = NULL
		WHERE id = $1 AND status = 'running'
	`, id, result, currentTime)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Fail records a failed attempt on a running job. Retryable failures with
// remaining attempt budget requeue the job with a backoff proportional to
// the attempt count; everything else transitions to terminal failed.
func (r *JobRepo) Fail(ctx context.Context, params core.FailJobParams) (bool, error) {
	if params.ErrMsg == "" {
		return false, errors.New("error message is required")
	}

	currentTime := r.timeProvider.Now()

	var status string
	err := r.DB.QueryRowContext(ctx, `
      UPDATE scoring_jobs
      SET
        last_error = $2,
        status = CASE WHEN NOT $3::boolean OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
        completed_at = CASE WHEN NOT $3::boolean OR attempts >= max_attempts THEN $4::timestamptz ELSE NULL END,
        scheduled_at = CASE WHEN NOT $3::boolean OR attempts >= max_attempts THEN scheduled_at
                            ELSE $4::timestamptz + make_interval(secs => attempts * $5::int) END,
        lease_expires_at = NULL,
        updated_at = $4
      WHERE id = $1 AND status = 'running'
      RETURNING status
    `, params.ID, params.ErrMsg, params.Retryable, currentTime.UTC(), r.retryDelay()).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("fail job: %w", err)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "job attempt failed",
			"job_id", params.ID,
			"retryable", params.Retryable,
			"status", status,
		)
	}
	return true, nil
}

// Stats returns counts of scoring jobs per state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')   AS pending,
    count(*) FILTER (WHERE status = 'running')   AS running,
    count(*) FILTER (WHERE status = 'completed') AS completed,
    count(*) FILTER (WHERE status = 'failed')    AS failed
  FROM scoring_jobs
  `).Scan(&s.Pending, &s.Running, &s.Completed, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &s, nil
}

// WaitForNotification blocks until a pg notification signals a newly
// available scoring job or the context ends.
func (r *JobRepo) WaitForNotification(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	quoted := pgx.Identifier{notifyChannel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", notifyChannel, execErr)
	}
	defer func() {
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

// GetByID retrieves a scoring job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.ScoringJob, error) {
	var job *model.ScoringJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM scoring_jobs
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns scoring jobs matching the given options, newest first.
func (r *JobRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.ScoringJob, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	query := `SELECT ` + jobColumns + ` FROM scoring_jobs`
	args := []any{}
	if opts.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *opts.Status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, opts.Limit, opts.Offset)

	var jobs []*model.ScoringJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			job, scanErr := scanJobFromRow(rows)
			if scanErr != nil {
				return scanErr
			}
			jobs = append(jobs, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if jobs == nil {
		jobs = []*model.ScoringJob{}
	}
	return jobs, nil
}
