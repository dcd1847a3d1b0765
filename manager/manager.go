// Package manager assembles storage, registries, runners and the worker
// loop into the single user-facing façade: Manager.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/policy"
	"github.com/sobczal2/jobfire/registry"
	"github.com/sobczal2/jobfire/runner"
	"github.com/sobczal2/jobfire/storage"
	"github.com/sobczal2/jobfire/worker"
)

// ServicesFunc is the user closure a Manager is built with: it receives
// the service locator after jobfire's own defaults are registered, and
// may add its own services (database handles, HTTP clients, feature
// flags — anything a job body or policy needs via execctx.Get).
type ServicesFunc func(services *execctx.Services)

// Manager is the user-facing façade: it owns the worker, the registries,
// and storage, and exposes schedule/cancel/reschedule/stop.
type Manager struct {
	storage  *storage.Storage
	worker   *worker.JobWorker
	handle   *worker.Handle
	services *execctx.Services
}

// New assembles a Manager. actions and policies are the frozen registries
// built ahead of time; userContextVal is the value every execctx.Context
// carries as Data; withServices lets the caller register its own services
// before the locator is verified. Construction fails with the error
// services.Verify returns, which aggregates every failure a registered
// VerifyService reports (a ServiceMissingError for a missing dependency,
// ErrInvalidSettings for invalid worker settings).
func New(
	ctx context.Context,
	store *storage.Storage,
	actions *registry.JobActionsRegistry,
	policies *policy.PolicyRegistry,
	userContextVal any,
	settings worker.Settings,
	withServices ServicesFunc,
) (*Manager, error) {
	services := execctx.NewServices()
	execctx.Register(services, store)
	execctx.Register(services, actions)
	execctx.Register(services, policies)
	execctx.Register(services, settings)

	onSuccess := runner.NewOnSuccessRunner(store, actions, services, userContextVal)
	onFail := runner.NewOnFailRunner(store, actions, services, userContextVal)
	jobRunner := runner.New(store, actions, policies, onSuccess, onFail, services, userContextVal)
	execctx.Register(services, onSuccess)
	execctx.Register(services, onFail)
	execctx.Register(services, jobRunner)

	jobWorker := worker.New(settings, store, jobRunner)
	execctx.Register(services, jobWorker)

	if withServices != nil {
		withServices(services)
	}

	if err := services.Verify(); err != nil {
		return nil, err
	}

	handle := jobWorker.Start(ctx)

	return &Manager{
		storage:  store,
		worker:   jobWorker,
		handle:   handle,
		services: services,
	}, nil
}

// Services exposes the locator so callers can reach jobfire's own
// registered services (e.g. to introspect worker state) or anything they
// registered via withServices.
func (m *Manager) Services() *execctx.Services {
	return m.services
}

// Schedule materializes a new Job from impl with the given policy chain,
// persists it, and enqueues a PendingJob due at at. It fails with
// AlreadyScheduled if a job with this id (vanishingly unlikely with
// UUIDv7, but possible if the caller supplies a pre-existing id via a
// custom JobRepo) already exists.
func (m *Manager) Schedule(ctx context.Context, impl domain.SerializedImpl, at time.Time, policyNames ...domain.PolicyName) (domain.JobId, error) {
	id, err := domain.NewJobId()
	if err != nil {
		return domain.JobId{}, fmt.Errorf("manager: schedule: %w", err)
	}

	policies := domain.NewPolicies(policyNames...)
	job := domain.NewJob(id, time.Now().UTC(), impl, policies)

	if err := m.storage.Jobs.Add(ctx, job); err != nil {
		if isAlreadyExists(err) {
			return domain.JobId{}, domain.ErrAlreadyScheduled
		}
		return domain.JobId{}, err
	}
	if err := m.storage.PendingJobs.Add(ctx, domain.NewPendingJob(id, at)); err != nil {
		return domain.JobId{}, err
	}
	return id, nil
}

// Cancel removes a job's pending entry. It has no effect on a job that is
// already running; that run completes normally.
func (m *Manager) Cancel(ctx context.Context, id domain.JobId) error {
	_, err := m.storage.PendingJobs.Delete(ctx, id)
	if isNotFound(err) {
		return domain.ErrJobNotFound
	}
	return err
}

// Reschedule moves a pending job's due time. The delete-then-insert is
// atomic only if the underlying PendingJobRepo makes it so.
func (m *Manager) Reschedule(ctx context.Context, id domain.JobId, newAt time.Time) error {
	existing, err := m.storage.PendingJobs.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrJobNotFound
	}

	if _, err := m.storage.PendingJobs.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return domain.ErrJobNotFound
		}
		return err
	}
	return m.storage.PendingJobs.Add(ctx, domain.NewPendingJob(id, newAt))
}

// Stop requests the worker stop and blocks until it reaches Stopped or
// ctx is done.
func (m *Manager) Stop(ctx context.Context) error {
	return m.handle.Stop(ctx)
}

func isAlreadyExists(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
