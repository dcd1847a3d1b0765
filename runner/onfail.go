package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/registry"
	"github.com/sobczal2/jobfire/storage"
)

// OnFailRunner durably records a failed run and invokes the job's on_fail
// callback, symmetric to OnSuccessRunner.
type OnFailRunner struct {
	storage        *storage.Storage
	actions        *registry.JobActionsRegistry
	services       *execctx.Services
	userContextVal any
}

// NewOnFailRunner builds an OnFailRunner.
func NewOnFailRunner(store *storage.Storage, actions *registry.JobActionsRegistry, services *execctx.Services, userContextVal any) *OnFailRunner {
	return &OnFailRunner{storage: store, actions: actions, services: services, userContextVal: userContextVal}
}

// Verify satisfies execctx.VerifyService.
func (r *OnFailRunner) Verify() error {
	switch {
	case r.storage == nil:
		return &domain.ServiceMissingError{Name: "OnFailRunner.storage"}
	case r.actions == nil:
		return &domain.ServiceMissingError{Name: "OnFailRunner.actions"}
	}
	return nil
}

// Run appends a FailedRun row carrying runErr's message and invokes the
// job's on_fail callback, logging but swallowing any callback error.
func (r *OnFailRunner) Run(ctx context.Context, job domain.Job, pending domain.PendingJob, running domain.RunningJob, runErr error) {
	failedRun := domain.NewFailedRun(running.RunId, job.Id, pending.ScheduledAt, time.Now().UTC(), runErr)
	if err := r.storage.FailedRuns.Add(ctx, failedRun); err != nil {
		slog.Error("on_fail runner: failed to record failed run", "job_id", job.Id, "run_id", running.RunId, "error", err)
		return
	}

	actions, ok := r.actions.Lookup(job.Impl.Name)
	if !ok {
		slog.Error("on_fail runner: job implementation no longer registered", "job_id", job.Id, "impl", job.Impl.Name)
		return
	}
	if actions.OnFail == nil {
		return
	}

	jobCtx := execctx.New(r.userContextVal, r.services)
	if err := actions.OnFail(ctx, job.Impl, jobCtx); err != nil {
		slog.Error("on_fail runner: callback failed", "job_id", job.Id, "run_id", running.RunId, "error", err)
	}
}
