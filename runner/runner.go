// Package runner implements the three pieces that take a due job from
// dispatch through to a terminal record: JobRunner executes the
// policy-wrapped action; OnSuccessRunner and OnFailRunner durably record
// the outcome and invoke the user's callback.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/policy"
	"github.com/sobczal2/jobfire/registry"
	"github.com/sobczal2/jobfire/storage"
)

// JobRunner executes one due job end to end: claims it, runs its
// policy-wrapped action, and hands the outcome to the matching success or
// fail runner.
type JobRunner struct {
	storage        *storage.Storage
	actions        *registry.JobActionsRegistry
	policies       *policy.PolicyRegistry
	onSuccess      *OnSuccessRunner
	onFail         *OnFailRunner
	services       *execctx.Services
	userContextVal any
}

// New builds a JobRunner wired to the given storage, registries, sibling
// runners, and execution-context services. userContextVal is the user
// payload every execctx.Context.Data carries for the lifetime of the
// Manager.
func New(
	store *storage.Storage,
	actions *registry.JobActionsRegistry,
	policies *policy.PolicyRegistry,
	onSuccess *OnSuccessRunner,
	onFail *OnFailRunner,
	services *execctx.Services,
	userContextVal any,
) *JobRunner {
	return &JobRunner{
		storage:        store,
		actions:        actions,
		policies:       policies,
		onSuccess:      onSuccess,
		onFail:         onFail,
		services:       services,
		userContextVal: userContextVal,
	}
}

// Verify satisfies execctx.VerifyService.
func (r *JobRunner) Verify() error {
	switch {
	case r.storage == nil:
		return &domain.ServiceMissingError{Name: "JobRunner.storage"}
	case r.actions == nil:
		return &domain.ServiceMissingError{Name: "JobRunner.actions"}
	case r.policies == nil:
		return &domain.ServiceMissingError{Name: "JobRunner.policies"}
	case r.onSuccess == nil:
		return &domain.ServiceMissingError{Name: "JobRunner.onSuccess"}
	case r.onFail == nil:
		return &domain.ServiceMissingError{Name: "JobRunner.onFail"}
	}
	return nil
}

// Run executes one pending dispatch. It never returns an error to the
// caller: every failure is logged and the job is left in whatever state
// the failed step produced, for an operator or a later poll to reconcile.
func (r *JobRunner) Run(ctx context.Context, pending domain.PendingJob) {
	job, err := r.storage.Jobs.Get(ctx, pending.JobId)
	if err != nil {
		slog.Error("job runner: failed to load job", "job_id", pending.JobId, "error", err)
		return
	}
	if job == nil {
		slog.Warn("job runner: pending job orphaned, job definition missing", "job_id", pending.JobId)
		return
	}

	runId, err := domain.NewRunId()
	if err != nil {
		slog.Error("job runner: failed to allocate run id", "job_id", pending.JobId, "error", err)
		return
	}
	startedAt := time.Now().UTC()
	running := domain.NewRunningJob(job.Id, runId, startedAt)
	if err := r.storage.RunningJobs.Add(ctx, running); err != nil {
		slog.Info("job runner: could not claim job, another dispatch won", "job_id", pending.JobId, "error", err)
		return
	}

	actions, ok := r.actions.Lookup(job.Impl.Name)
	var (
		report domain.Report
		runErr error
	)
	if !ok {
		runErr = domain.ErrJobImplBuildFailed
	} else {
		data := policy.Data(job.Policies.Data)
		chained, chainErr := policy.Chain(r.policies, job.Policies.Names, data, actions)
		if chainErr != nil {
			runErr = chainErr
		} else {
			jobCtx := execctx.New(r.userContextVal, r.services)
			report, runErr = chained.Run(ctx, job.Impl, jobCtx)
			job.Policies.Data = data
		}
	}

	if _, err := r.storage.RunningJobs.Delete(ctx, job.Id); err != nil {
		slog.Error("job runner: failed to clear running claim", "job_id", job.Id, "error", err)
		return
	}
	if err := r.storage.Jobs.UpdatePolicies(ctx, job.Id, job.Policies); err != nil {
		slog.Error("job runner: failed to persist policy data", "job_id", job.Id, "error", err)
		return
	}

	if runErr != nil {
		r.onFail.Run(ctx, *job, pending, running, runErr)
		return
	}
	r.onSuccess.Run(ctx, *job, pending, running, report)
}
