package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/sobczal2/jobfire/domain"
)

// These tests only run against a real PostgreSQL instance, opted into via
// JOBFIRE_TEST_POSTGRES_DSN. They're skipped otherwise rather than faked
// with a SQL mock, since the behavior under test — FOR UPDATE SKIP LOCKED
// semantics, unique_violation translation — depends on the real planner
// and constraint engine.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("JOBFIRE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("JOBFIRE_TEST_POSTGRES_DSN not set, skipping postgres storage tests")
	}
	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	_, err = db.Exec(Schema)
	require.NoError(t, err)
	return db
}

func TestPostgresJobRepoAddGetDelete(t *testing.T) {
	db := testDB(t)
	store := NewStorage(db)
	ctx := context.Background()

	id, err := domain.NewJobId()
	require.NoError(t, err)
	job := domain.NewJob(id, time.Now().UTC(), domain.SerializedImpl{Name: "noop"}, domain.NewPolicies())

	require.NoError(t, store.Jobs.Add(ctx, job))
	require.ErrorIs(t, store.Jobs.Add(ctx, job), domain.ErrAlreadyExists)

	got, err := store.Jobs.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, id, got.Id)

	deleted, err := store.Jobs.Delete(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, deleted.Id)
}

func TestPostgresPendingJobRepoPopScheduledOrdering(t *testing.T) {
	db := testDB(t)
	store := NewStorage(db)
	ctx := context.Background()
	now := time.Now().UTC()

	early, err := domain.NewJobId()
	require.NoError(t, err)
	late, err := domain.NewJobId()
	require.NoError(t, err)

	require.NoError(t, store.PendingJobs.Add(ctx, domain.NewPendingJob(late, now.Add(-time.Second))))
	require.NoError(t, store.PendingJobs.Add(ctx, domain.NewPendingJob(early, now.Add(-10*time.Second))))

	popped, err := store.PendingJobs.PopScheduled(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, popped)
	require.Equal(t, early, popped.JobId)
}
