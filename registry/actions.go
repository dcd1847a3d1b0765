// Package registry implements the action registry: the immutable map
// from a job's JobImplName to the three closures — run, on_success,
// on_fail — that give it behavior.
package registry

import (
	"context"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
)

// RunFunc executes a job body once and reports its outcome. A
// JobImplBuildFailed error (failure to decode the serialized payload) is
// returned the same way any other job-level error is.
type RunFunc func(ctx context.Context, impl domain.SerializedImpl, jobCtx *execctx.Context) (domain.Report, error)

// CallbackFunc is the shape of on_success/on_fail: it observes the outcome
// but cannot itself fail the job. Any error it returns is logged and
// swallowed by the runner that calls it.
type CallbackFunc func(ctx context.Context, impl domain.SerializedImpl, jobCtx *execctx.Context) error

// JobActions is the triple bound to one JobImplName. Policies wrap these
// three function values with new ones of the same shape — this is why
// JobActions is a plain struct of functions rather than an interface

type JobActions struct {
	Run       RunFunc
	OnSuccess CallbackFunc
	OnFail    CallbackFunc
}

// JobActionsRegistry is the immutable, built-once map from JobImplName to
// JobActions. It is itself a service in the execution context's locator.
type JobActionsRegistry struct {
	actions map[domain.JobImplName]JobActions
}

// Lookup returns the JobActions bound to name, or false if name was never
// registered — the runner treats that as a job-level failure
// (JobImplBuildFailed).
func (r *JobActionsRegistry) Lookup(name domain.JobImplName) (JobActions, bool) {
	actions, ok := r.actions[name]
	return actions, ok
}

// Builder accumulates JobActions bindings before the registry is frozen by
// Build. There is no Verify-able state here: an empty registry is valid,
// it simply fails every dispatch.
type Builder struct {
	actions map[domain.JobImplName]JobActions
}

// NewBuilder starts an empty JobActionsRegistry builder.
func NewBuilder() *Builder {
	return &Builder{actions: make(map[domain.JobImplName]JobActions)}
}

// Register binds name to the given triple of closures. Registering the
// same name twice overwrites the earlier binding — uniqueness is the
// caller's responsibility, exactly as a Go map assignment would be.
func (b *Builder) Register(name domain.JobImplName, actions JobActions) *Builder {
	b.actions[name] = actions
	return b
}

// Build freezes the accumulated bindings into an immutable
// JobActionsRegistry.
func (b *Builder) Build() *JobActionsRegistry {
	frozen := make(map[domain.JobImplName]JobActions, len(b.actions))
	for k, v := range b.actions {
		frozen[k] = v
	}
	return &JobActionsRegistry{actions: frozen}
}
