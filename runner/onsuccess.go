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

// OnSuccessRunner durably records a successful run and invokes the job's
// on_success callback. The record is written before the callback runs, so
// a panicking or slow callback never hides the fact the run succeeded.
type OnSuccessRunner struct {
	storage        *storage.Storage
	actions        *registry.JobActionsRegistry
	services       *execctx.Services
	userContextVal any
}

// NewOnSuccessRunner builds an OnSuccessRunner.
func NewOnSuccessRunner(store *storage.Storage, actions *registry.JobActionsRegistry, services *execctx.Services, userContextVal any) *OnSuccessRunner {
	return &OnSuccessRunner{storage: store, actions: actions, services: services, userContextVal: userContextVal}
}

// Verify satisfies execctx.VerifyService.
func (r *OnSuccessRunner) Verify() error {
	switch {
	case r.storage == nil:
		return &domain.ServiceMissingError{Name: "OnSuccessRunner.storage"}
	case r.actions == nil:
		return &domain.ServiceMissingError{Name: "OnSuccessRunner.actions"}
	}
	return nil
}

// Run appends a SuccessfulRun row and invokes the job's on_success
// callback, logging but swallowing any callback error.
func (r *OnSuccessRunner) Run(ctx context.Context, job domain.Job, pending domain.PendingJob, running domain.RunningJob, report domain.Report) {
	successfulRun := domain.NewSuccessfulRun(running.RunId, job.Id, pending.ScheduledAt, time.Now().UTC(), report)
	if err := r.storage.SuccessfulRuns.Add(ctx, successfulRun); err != nil {
		slog.Error("on_success runner: failed to record successful run", "job_id", job.Id, "run_id", running.RunId, "error", err)
		return
	}

	actions, ok := r.actions.Lookup(job.Impl.Name)
	if !ok {
		slog.Error("on_success runner: job implementation no longer registered", "job_id", job.Id, "impl", job.Impl.Name)
		return
	}
	if actions.OnSuccess == nil {
		return
	}

	jobCtx := execctx.New(r.userContextVal, r.services)
	if err := actions.OnSuccess(ctx, job.Impl, jobCtx); err != nil {
		slog.Error("on_success runner: callback failed", "job_id", job.Id, "run_id", running.RunId, "error", err)
	}
}
