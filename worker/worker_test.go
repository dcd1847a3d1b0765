package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/policy"
	"github.com/sobczal2/jobfire/registry"
	"github.com/sobczal2/jobfire/runner"
	"github.com/sobczal2/jobfire/storage/memory"
)

func TestSettingsDefaultIsValid(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidateRejectsNonPositive(t *testing.T) {
	assert.ErrorIs(t, Settings{PollRate: 0, CommandChannelSize: 1}.Validate(), domain.ErrInvalidSettings)
	assert.ErrorIs(t, Settings{PollRate: time.Second, CommandChannelSize: 0}.Validate(), domain.ErrInvalidSettings)
}

func TestJobWorkerDispatchesDueJobAndStops(t *testing.T) {
	store := memory.NewStorage()
	var runs atomic.Int32

	actionsRegistry := registry.NewBuilder().Register("count", registry.JobActions{
		Run: func(context.Context, domain.SerializedImpl, *execctx.Context) (domain.Report, error) {
			runs.Add(1)
			return domain.NewReport(), nil
		},
	}).Build()
	policyRegistry := policy.NewBuilder().Build()
	services := execctx.NewServices()
	onSuccess := runner.NewOnSuccessRunner(store, actionsRegistry, services, nil)
	onFail := runner.NewOnFailRunner(store, actionsRegistry, services, nil)
	jobRunner := runner.New(store, actionsRegistry, policyRegistry, onSuccess, onFail, services, nil)

	settings := Settings{PollRate: 5 * time.Millisecond, CommandChannelSize: 4}
	w := New(settings, store, jobRunner)
	require.NoError(t, w.Verify())

	id, err := domain.NewJobId()
	require.NoError(t, err)
	job := domain.NewJob(id, time.Now().UTC(), domain.SerializedImpl{Name: "count"}, domain.NewPolicies())
	require.NoError(t, store.Jobs.Add(context.Background(), job))
	require.NoError(t, store.PendingJobs.Add(context.Background(), domain.NewPendingJob(id, time.Now().UTC().Add(-time.Second))))

	ctx := context.Background()
	handle := w.Start(ctx)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 2*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, handle.Stop(stopCtx))
	assert.Equal(t, Stopped, handle.State())
}

func TestJobWorkerStopWithNoDueJobs(t *testing.T) {
	store := memory.NewStorage()
	actionsRegistry := registry.NewBuilder().Build()
	policyRegistry := policy.NewBuilder().Build()
	services := execctx.NewServices()
	onSuccess := runner.NewOnSuccessRunner(store, actionsRegistry, services, nil)
	onFail := runner.NewOnFailRunner(store, actionsRegistry, services, nil)
	jobRunner := runner.New(store, actionsRegistry, policyRegistry, onSuccess, onFail, services, nil)

	w := New(Settings{PollRate: 5 * time.Millisecond, CommandChannelSize: 1}, store, jobRunner)
	handle := w.Start(context.Background())

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, handle.Stop(stopCtx))
	assert.Equal(t, Stopped, handle.State())
}
