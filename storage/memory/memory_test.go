package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobczal2/jobfire/domain"
)

func newJobId(t *testing.T) domain.JobId {
	t.Helper()
	id, err := domain.NewJobId()
	require.NoError(t, err)
	return id
}

func TestJobRepoAddGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	id := newJobId(t)
	job := domain.NewJob(id, time.Now(), domain.SerializedImpl{Name: "noop"}, domain.NewPolicies())

	require.NoError(t, s.Jobs.Add(ctx, job))
	assert.ErrorIs(t, s.Jobs.Add(ctx, job), domain.ErrAlreadyExists)

	got, err := s.Jobs.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.Id)

	deleted, err := s.Jobs.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, deleted.Id)

	_, err = s.Jobs.Delete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPendingJobRepoPopScheduledOrderingAndBound(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	now := time.Now()

	early := newJobId(t)
	late := newJobId(t)
	future := newJobId(t)

	require.NoError(t, s.PendingJobs.Add(ctx, domain.NewPendingJob(late, now.Add(-1*time.Second))))
	require.NoError(t, s.PendingJobs.Add(ctx, domain.NewPendingJob(early, now.Add(-10*time.Second))))
	require.NoError(t, s.PendingJobs.Add(ctx, domain.NewPendingJob(future, now.Add(10*time.Second))))

	popped, err := s.PendingJobs.PopScheduled(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, early, popped.JobId, "earliest due entry should pop first")

	popped, err = s.PendingJobs.PopScheduled(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, late, popped.JobId)

	// The future entry is not due yet: PopScheduled never returns an entry
	// whose ScheduledAt >= now.
	popped, err = s.PendingJobs.PopScheduled(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, popped)
}

func TestRunningJobRepoAtMostOnePerJob(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	jobId := newJobId(t)
	runId, err := domain.NewRunId()
	require.NoError(t, err)

	require.NoError(t, s.RunningJobs.Add(ctx, domain.NewRunningJob(jobId, runId, time.Now())))

	otherRun, err := domain.NewRunId()
	require.NoError(t, err)
	err = s.RunningJobs.Add(ctx, domain.NewRunningJob(jobId, otherRun, time.Now()))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestSuccessfulAndFailedRunIdsAreIndependentTables(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	jobId := newJobId(t)
	runId, err := domain.NewRunId()
	require.NoError(t, err)

	require.NoError(t, s.SuccessfulRuns.Add(ctx, domain.NewSuccessfulRun(runId, jobId, time.Now(), time.Now(), domain.NewReport())))
	assert.ErrorIs(t, s.SuccessfulRuns.Add(ctx, domain.NewSuccessfulRun(runId, jobId, time.Now(), time.Now(), domain.NewReport())), domain.ErrAlreadyExists)

	// A FailedRun with the same run_id is a separate table; jobfire itself
	// never writes both for one run_id, but the repo contract doesn't
	// forbid it.
	require.NoError(t, s.FailedRuns.Add(ctx, domain.NewFailedRun(runId, jobId, time.Now(), time.Now(), assertErr)))
}

var assertErr = &domain.CustomJobError{Message: "boom"}

func TestUpdatePoliciesNoopOnNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	id := newJobId(t)
	assert.NoError(t, s.Jobs.UpdatePolicies(ctx, id, domain.NewPolicies()))
}
