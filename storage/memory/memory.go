// Package memory is the reference in-memory Storage implementation used by
// jobfire's own tests and by callers that don't need durability across
// restarts. It never persists anything to disk, so the non-atomic
// Pending→Running handoff other backends must guard against is moot here:
// a crash loses everything regardless of where it lands.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/storage"
)

// NewStorage builds a fully-wired in-memory storage.Storage: all five
// repositories backed by the same mutex-guarded maps, each map guarded by
// its own sync.RWMutex.
func NewStorage() *storage.Storage {
	return &storage.Storage{
		Jobs:           newJobRepo(),
		PendingJobs:    newPendingJobRepo(),
		RunningJobs:    newRunningJobRepo(),
		SuccessfulRuns: newSuccessfulRunRepo(),
		FailedRuns:     newFailedRunRepo(),
	}
}

type jobRepo struct {
	mu   sync.RWMutex
	jobs map[domain.JobId]domain.Job
}

func newJobRepo() *jobRepo {
	return &jobRepo{jobs: make(map[domain.JobId]domain.Job)}
}

func (r *jobRepo) Get(_ context.Context, id domain.JobId) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) Add(_ context.Context, job domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Id]; exists {
		return domain.NewAlreadyExistsError(nil)
	}
	r.jobs[job.Id] = job
	return nil
}

func (r *jobRepo) Delete(_ context.Context, id domain.JobId) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, domain.NewNotFoundError(nil)
	}
	delete(r.jobs, id)
	return job, nil
}

func (r *jobRepo) UpdatePolicies(_ context.Context, id domain.JobId, policies domain.Policies) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		// No-op on NotFound is acceptable.
		return nil
	}
	job.Policies = policies
	r.jobs[id] = job
	return nil
}

type pendingJobRepo struct {
	mu      sync.RWMutex
	pending map[domain.JobId]domain.PendingJob
}

func newPendingJobRepo() *pendingJobRepo {
	return &pendingJobRepo{pending: make(map[domain.JobId]domain.PendingJob)}
}

func (r *pendingJobRepo) Get(_ context.Context, jobId domain.JobId) (*domain.PendingJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pending[jobId]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *pendingJobRepo) Add(_ context.Context, pending domain.PendingJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[pending.JobId]; exists {
		return domain.NewAlreadyExistsError(nil)
	}
	r.pending[pending.JobId] = pending
	return nil
}

func (r *pendingJobRepo) Delete(_ context.Context, jobId domain.JobId) (domain.PendingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[jobId]
	if !ok {
		return domain.PendingJob{}, domain.NewNotFoundError(nil)
	}
	delete(r.pending, jobId)
	return p, nil
}

// PopScheduled returns the due entry with the earliest ScheduledAt, a
// a stable choice, and removes it atomically under
// the write lock.
func (r *pendingJobRepo) PopScheduled(_ context.Context, now time.Time) (*domain.PendingJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var earliest *domain.PendingJob
	for _, p := range r.pending {
		p := p
		if !p.ScheduledAt.Before(now) {
			continue
		}
		if earliest == nil || p.ScheduledAt.Before(earliest.ScheduledAt) {
			earliest = &p
		}
	}
	if earliest == nil {
		return nil, nil
	}
	delete(r.pending, earliest.JobId)
	return earliest, nil
}

type runningJobRepo struct {
	mu      sync.RWMutex
	running map[domain.JobId]domain.RunningJob
}

func newRunningJobRepo() *runningJobRepo {
	return &runningJobRepo{running: make(map[domain.JobId]domain.RunningJob)}
}

func (r *runningJobRepo) Get(_ context.Context, jobId domain.JobId) (*domain.RunningJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.running[jobId]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (r *runningJobRepo) Add(_ context.Context, running domain.RunningJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.running[running.JobId]; exists {
		return domain.NewAlreadyExistsError(nil)
	}
	r.running[running.JobId] = running
	return nil
}

func (r *runningJobRepo) Delete(_ context.Context, jobId domain.JobId) (domain.RunningJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.running[jobId]
	if !ok {
		return domain.RunningJob{}, domain.NewNotFoundError(nil)
	}
	delete(r.running, jobId)
	return j, nil
}

type successfulRunRepo struct {
	mu   sync.RWMutex
	runs map[domain.RunId]domain.SuccessfulRun
}

func newSuccessfulRunRepo() *successfulRunRepo {
	return &successfulRunRepo{runs: make(map[domain.RunId]domain.SuccessfulRun)}
}

func (r *successfulRunRepo) Get(_ context.Context, runId domain.RunId) (*domain.SuccessfulRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runId]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (r *successfulRunRepo) Add(_ context.Context, run domain.SuccessfulRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.RunId]; exists {
		return domain.NewAlreadyExistsError(nil)
	}
	r.runs[run.RunId] = run
	return nil
}

type failedRunRepo struct {
	mu   sync.RWMutex
	runs map[domain.RunId]domain.FailedRun
}

func newFailedRunRepo() *failedRunRepo {
	return &failedRunRepo{runs: make(map[domain.RunId]domain.FailedRun)}
}

func (r *failedRunRepo) Get(_ context.Context, runId domain.RunId) (*domain.FailedRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[runId]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (r *failedRunRepo) Add(_ context.Context, run domain.FailedRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.RunId]; exists {
		return domain.NewAlreadyExistsError(nil)
	}
	r.runs[run.RunId] = run
	return nil
}
