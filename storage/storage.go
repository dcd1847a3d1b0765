// Package storage declares the five repository ports the jobfire engine
// depends on. Concrete backends — the in-memory reference implementation,
// and the Postgres/Redis backends — live in subpackages. Nothing in this
// package talks to a real datastore.
package storage

import (
	"context"
	"time"

	"github.com/sobczal2/jobfire/domain"
)

// JobRepo stores Job definitions. Jobs are retained for audit even after
// their run terminates; only explicit Delete removes one.
type JobRepo interface {
	Get(ctx context.Context, id domain.JobId) (*domain.Job, error)
	Add(ctx context.Context, job domain.Job) error
	Delete(ctx context.Context, id domain.JobId) (domain.Job, error)
	// UpdatePolicies persists policy-data mutations observed after a run.
	// A no-op on NotFound is acceptable and not treated as an error by
	// callers.
	UpdatePolicies(ctx context.Context, id domain.JobId, policies domain.Policies) error
}

// PendingJobRepo stores the due-job queue. At most one PendingJob exists
// per job id at a time.
type PendingJobRepo interface {
	Get(ctx context.Context, jobId domain.JobId) (*domain.PendingJob, error)
	Add(ctx context.Context, pending domain.PendingJob) error
	Delete(ctx context.Context, jobId domain.JobId) (domain.PendingJob, error)
	// PopScheduled returns and removes one pending job whose ScheduledAt is
	// strictly before now, or (nil, nil) if none are due. Implementations
	// should prefer the earliest ScheduledAt among eligible rows, though
	// that ordering is not a correctness requirement.
	PopScheduled(ctx context.Context, now time.Time) (*domain.PendingJob, error)
}

// RunningJobRepo stores the in-flight claim that enforces at-most-one
// concurrent run per job.
type RunningJobRepo interface {
	Get(ctx context.Context, jobId domain.JobId) (*domain.RunningJob, error)
	Add(ctx context.Context, running domain.RunningJob) error
	Delete(ctx context.Context, jobId domain.JobId) (domain.RunningJob, error)
}

// SuccessfulRunRepo stores append-only successful-run rows.
type SuccessfulRunRepo interface {
	Get(ctx context.Context, runId domain.RunId) (*domain.SuccessfulRun, error)
	Add(ctx context.Context, run domain.SuccessfulRun) error
}

// FailedRunRepo stores append-only failed-run rows.
type FailedRunRepo interface {
	Get(ctx context.Context, runId domain.RunId) (*domain.FailedRun, error)
	Add(ctx context.Context, run domain.FailedRun) error
}

// Storage bundles the five repositories the engine depends on. A Storage
// value is shared by reference and must be safe for concurrent use; it is
// itself registered as a service in the execution context's locator.
type Storage struct {
	Jobs           JobRepo
	PendingJobs    PendingJobRepo
	RunningJobs    RunningJobRepo
	SuccessfulRuns SuccessfulRunRepo
	FailedRuns     FailedRunRepo
}

// Verify satisfies execctx.VerifyService: a Storage is only usable once
// every member repository has been supplied.
func (s *Storage) Verify() error {
	switch {
	case s.Jobs == nil:
		return errMissing("JobRepo")
	case s.PendingJobs == nil:
		return errMissing("PendingJobRepo")
	case s.RunningJobs == nil:
		return errMissing("RunningJobRepo")
	case s.SuccessfulRuns == nil:
		return errMissing("SuccessfulRunRepo")
	case s.FailedRuns == nil:
		return errMissing("FailedRunRepo")
	}
	return nil
}

func errMissing(name string) error {
	return &domain.ServiceMissingError{Name: "Storage." + name}
}
