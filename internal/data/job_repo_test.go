package data_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilegate/screener/internal/core"
	"github.com/profilegate/screener/internal/data"
	"github.com/profilegate/screener/internal/domain/model"
	"github.com/profilegate/screener/internal/testutil"
)

const testRetryDelaySeconds = 10

// newTestRepo builds a repo pinned to a fixed clock so lease expiry and
// backoff math can be asserted exactly.
func newTestRepo(db *sql.DB, clock *data.FixedTimeProvider) *data.JobRepo {
	return data.NewJobRepo(db, data.RepoConfig{
		RetryDelaySeconds:  testRetryDelaySeconds,
		DefaultMaxAttempts: 3,
		TimeProvider:       clock,
	})
}

func fixedClock() *data.FixedTimeProvider {
	return data.NewFixedTimeProvider(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
}

func TestJobRepo_CreateAndGetByID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		req := testutil.NewJobRequest().WithCategory(model.CategoryProduct).Build()
		job, err := repo.Create(ctx, req)
		require.NoError(t, err)

		assert.NotEmpty(t, job.ID)
		assert.Equal(t, req.SubjectID, job.SubjectID)
		assert.Equal(t, model.CategoryProduct, job.Category)
		assert.Equal(t, model.JobStatusPending, job.Status)
		assert.Equal(t, 0, job.Attempts)
		assert.Equal(t, 3, job.MaxAttempts)
		assert.True(t, job.ScheduledAt.Equal(clock.Now()))
		assert.Nil(t, job.StartedAt)
		assert.Nil(t, job.CompletedAt)
		assert.Nil(t, job.LeaseExpiresAt)
		assert.Nil(t, job.Result)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, job.SubjectID, got.SubjectID)
		assert.Equal(t, model.JobStatusPending, got.Status)
	})
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(db, fixedClock())

		_, err := repo.GetByID(context.Background(), uuid.NewString())
		assert.ErrorIs(t, err, data.ErrJobNotFound)
	})
}

func TestJobRepo_Create_AppliesDefaultMaxAttempts(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(db, fixedClock())

		req := testutil.NewJobRequest().WithMaxAttempts(0).Build()
		job, err := repo.Create(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 3, job.MaxAttempts)
	})
}

func TestJobRepo_Create_RejectsInvalidRequest(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(db, fixedClock())
		ctx := context.Background()

		_, err := repo.Create(ctx, nil)
		assert.Error(t, err)

		_, err = repo.Create(ctx, &model.CreateJobRequest{SubjectID: "not-a-uuid", Category: model.CategoryDesign})
		assert.Error(t, err)
	})
}

func TestJobRepo_Create_DuplicateActiveSubject(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		subjectID := uuid.NewString()
		first, err := repo.Create(ctx, testutil.NewJobRequest().WithSubjectID(subjectID).Build())
		require.NoError(t, err)

		_, err = repo.Create(ctx, testutil.NewJobRequest().WithSubjectID(subjectID).Build())
		assert.ErrorIs(t, err, data.ErrDuplicateActiveJob)

		// Once the first job reaches a terminal state the subject may be
		// scored again.
		reserved, err := repo.ReserveNext(ctx, 60)
		require.NoError(t, err)
		require.Equal(t, first.ID, reserved.ID)

		ok, err := repo.Complete(ctx, first.ID, []byte(`{"decision":"pass"}`))
		require.NoError(t, err)
		require.True(t, ok)

		_, err = repo.Create(ctx, testutil.NewJobRequest().WithSubjectID(subjectID).Build())
		assert.NoError(t, err)
	})
}

func TestJobRepo_ReserveNext(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		_, err := repo.ReserveNext(ctx, 60)
		assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

		older, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		clock.Advance(time.Second)
		newer, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		// Oldest due job first.
		reserved, err := repo.ReserveNext(ctx, 60)
		require.NoError(t, err)
		assert.Equal(t, older.ID, reserved.ID)
		assert.Equal(t, model.JobStatusRunning, reserved.Status)
		assert.Equal(t, 1, reserved.Attempts)
		require.NotNil(t, reserved.StartedAt)
		require.NotNil(t, reserved.LeaseExpiresAt)
		assert.True(t, reserved.LeaseExpiresAt.Equal(clock.Now().Add(60*time.Second)))

		second, err := repo.ReserveNext(ctx, 60)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, second.ID)

		_, err = repo.ReserveNext(ctx, 60)
		assert.ErrorIs(t, err, model.ErrNoJobsAvailable)
	})
}

func TestJobRepo_ReserveNext_SkipsFutureScheduledJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		clock.Advance(time.Hour)
		_, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		// Rewind below the job's scheduled time; it is not due yet.
		clock.Advance(-time.Hour)
		_, err = repo.ReserveNext(ctx, 60)
		assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

		clock.Advance(2 * time.Hour)
		reserved, err := repo.ReserveNext(ctx, 60)
		require.NoError(t, err)
		assert.Equal(t, 1, reserved.Attempts)
	})
}

func TestJobRepo_ReserveNext_RejectsNonPositiveLease(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		repo := newTestRepo(db, fixedClock())
		_, err := repo.ReserveNext(context.Background(), 0)
		assert.Error(t, err)
	})
}

func TestJobRepo_ReserveNext_RequeuesExpiredLease(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		first, err := repo.ReserveNext(ctx, 30)
		require.NoError(t, err)
		require.Equal(t, job.ID, first.ID)
		require.Equal(t, 1, first.Attempts)

		// While the lease is live the job is invisible to other workers.
		_, err = repo.ReserveNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

		clock.Advance(31 * time.Second)
		second, err := repo.ReserveNext(ctx, 30)
		require.NoError(t, err)
		assert.Equal(t, job.ID, second.ID)
		assert.Equal(t, 2, second.Attempts)
		require.NotNil(t, second.StartedAt)
		assert.True(t, second.StartedAt.Equal(*first.StartedAt), "started_at records the first attempt only")
	})
}

func TestJobRepo_ReserveNext_ExpiredLeaseWithExhaustedBudget(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		job, err := repo.Create(ctx, testutil.NewJobRequest().WithMaxAttempts(1).Build())
		require.NoError(t, err)

		_, err = repo.ReserveNext(ctx, 30)
		require.NoError(t, err)

		clock.Advance(31 * time.Second)
		_, err = repo.ReserveNext(ctx, 30)
		assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "lease expired with retry budget exhausted", *got.LastError)
		assert.NotNil(t, got.CompletedAt)
		assert.Nil(t, got.LeaseExpiresAt)
	})
}

func TestJobRepo_Heartbeat(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		// Pending jobs have no lease to refresh.
		ok, err := repo.Heartbeat(ctx, job.ID, 30)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.ReserveNext(ctx, 30)
		require.NoError(t, err)

		clock.Advance(20 * time.Second)
		ok, err = repo.Heartbeat(ctx, job.ID, 30)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LeaseExpiresAt)
		assert.True(t, got.LeaseExpiresAt.Equal(clock.Now().Add(30*time.Second)))

		_, err = repo.Heartbeat(ctx, job.ID, 0)
		assert.Error(t, err)
	})
}

func TestJobRepo_Complete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = repo.ReserveNext(ctx, 60)
		require.NoError(t, err)

		result := json.RawMessage(`{"decision":"pass","confidence":0.82}`)
		ok, err := repo.Complete(ctx, job.ID, result)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, got.Status)
		assert.JSONEq(t, string(result), string(got.Result))
		assert.NotNil(t, got.CompletedAt)
		assert.Nil(t, got.LeaseExpiresAt)

		// Completion is a one-way transition from running.
		ok, err = repo.Complete(ctx, job.ID, result)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.Complete(ctx, job.ID, nil)
		assert.Error(t, err)
	})
}

func TestJobRepo_Fail_RetryableRequeuesWithBackoff(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		clock := fixedClock()
		repo := newTestRepo(db, clock)

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = repo.ReserveNext(ctx, 60)
		require.NoError(t, err)

		ok, err := repo.Fail(ctx, core.FailJobParams{ID: job.ID, ErrMsg: "provider timeout", Retryable: true})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)
		require.NotNil(t, got.LastError)
		assert.Equal(t, "provider timeout", *got.LastError)
		assert.Nil(t, got.CompletedAt)
		assert.Nil(t, got.LeaseExpiresAt)
		// Backoff grows with the attempt count: attempt 1 waits one delay unit.
		assert.True(t, got.ScheduledAt.Equal(clock.Now().Add(testRetryDelaySeconds*time.Second)))

		// Second attempt backs off twice as long.
		clock.Advance(testRetryDelaySeconds * time.Second)
		_, err = repo.ReserveNext(ctx, 60)
		require.NoError(t, err)
		ok, err = repo.Fail(ctx, core.FailJobParams{ID: job.ID, ErrMsg: "provider timeout", Retryable: true})
		require.NoError(t, err)
		require.True(t, ok)

		got, err = repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, got.Status)
		assert.True(t, got.ScheduledAt.Equal(clock.Now().Add(2*testRetryDelaySeconds*time.Second)))
	})
}

func TestJobRepo_Fail_NonRetryableIsTerminal(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = repo.ReserveNext(ctx, 60)
		require.NoError(t, err)

		ok, err := repo.Fail(ctx, core.FailJobParams{ID: job.ID, ErrMsg: "record not found", Retryable: false})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		assert.NotNil(t, got.CompletedAt)
	})
}

func TestJobRepo_Fail_ExhaustedBudgetIsTerminal(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		job, err := repo.Create(ctx, testutil.NewJobRequest().WithMaxAttempts(1).Build())
		require.NoError(t, err)
		_, err = repo.ReserveNext(ctx, 60)
		require.NoError(t, err)

		ok, err := repo.Fail(ctx, core.FailJobParams{ID: job.ID, ErrMsg: "rate limited", Retryable: true})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		assert.Equal(t, 1, got.Attempts)
	})
}

func TestJobRepo_Fail_Guards(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		// Not running yet.
		ok, err := repo.Fail(ctx, core.FailJobParams{ID: job.ID, ErrMsg: "boom", Retryable: false})
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.Fail(ctx, core.FailJobParams{ID: job.ID})
		assert.Error(t, err)
	})
}

func TestJobRepo_Stats(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &model.JobStats{}, stats)

		_, err = repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		toComplete, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		toFail, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		for range 3 {
			if _, err := repo.ReserveNext(ctx, 60); err != nil {
				t.Fatal(err)
			}
		}
		_, err = repo.Complete(ctx, toComplete.ID, []byte(`{}`))
		require.NoError(t, err)
		_, err = repo.Fail(ctx, core.FailJobParams{ID: toFail.ID, ErrMsg: "boom", Retryable: false})
		require.NoError(t, err)

		stats, err = repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &model.JobStats{Pending: 0, Running: 1, Completed: 1, Failed: 1}, stats)
	})
}

func TestJobRepo_List(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := newTestRepo(db, fixedClock())

		var ids []string
		for range 3 {
			job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)
			ids = append(ids, job.ID)
			// Distinct created_at values keep the newest-first order stable.
			time.Sleep(5 * time.Millisecond)
		}

		jobs, err := repo.List(ctx, &model.JobListOptions{Limit: 10})
		require.NoError(t, err)
		require.Len(t, jobs, 3)
		assert.Equal(t, ids[2], jobs[0].ID)
		assert.Equal(t, ids[0], jobs[2].ID)

		jobs, err = repo.List(ctx, &model.JobListOptions{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, ids[1], jobs[0].ID)

		running := model.JobStatusRunning
		jobs, err = repo.List(ctx, &model.JobListOptions{Status: &running, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, jobs)

		_, err = repo.ReserveNext(ctx, 60)
		require.NoError(t, err)
		jobs, err = repo.List(ctx, &model.JobListOptions{Status: &running, Limit: 10})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, ids[0], jobs[0].ID)
	})
}
