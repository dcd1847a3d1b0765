// Package postgres implements storage.Storage against PostgreSQL using
// sqlx for scanning and lib/pq for the driver and its typed error codes.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/storage"
)

const uniqueViolation = "23505"

// NewStorage builds a storage.Storage backed by db. The caller owns db's
// lifecycle (open/ping/close); NewStorage only issues queries against it.
func NewStorage(db *sqlx.DB) *storage.Storage {
	return &storage.Storage{
		Jobs:           &jobRepo{db: db},
		PendingJobs:    &pendingJobRepo{db: db},
		RunningJobs:    &runningJobRepo{db: db},
		SuccessfulRuns: &successfulRunRepo{db: db},
		FailedRuns:     &failedRunRepo{db: db},
	}
}

// Schema is the reference DDL a caller can run (e.g. via a migration
// tool) before pointing NewStorage at a database. One table per
// repository, timestamps as UTC milliseconds since the epoch and ids as
// UUID text (the same text jobfire's JSON encoding uses for ids; its JSON
// timestamps are RFC 3339 strings, not milliseconds).
const Schema = `
CREATE TABLE IF NOT EXISTS job (
	id text PRIMARY KEY,
	created_at bigint NOT NULL,
	impl_name text NOT NULL,
	impl_value jsonb NOT NULL,
	policy_names jsonb NOT NULL,
	policy_data jsonb NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_job (
	job_id text PRIMARY KEY,
	scheduled_at bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS running_job (
	job_id text PRIMARY KEY,
	run_id text NOT NULL,
	started_at bigint NOT NULL
);

CREATE TABLE IF NOT EXISTS successful_run (
	run_id text PRIMARY KEY,
	job_id text NOT NULL,
	scheduled_at bigint NOT NULL,
	finished_at bigint NOT NULL,
	report jsonb NOT NULL
);

CREATE TABLE IF NOT EXISTS failed_run (
	run_id text PRIMARY KEY,
	job_id text NOT NULL,
	scheduled_at bigint NOT NULL,
	finished_at bigint NOT NULL,
	error text NOT NULL
);
`

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ok := asPQError(err, &pqErr); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func asPQError(err error, target **pq.Error) bool {
	pqErr, ok := err.(*pq.Error)
	if ok {
		*target = pqErr
	}
	return ok
}

type jobRecord struct {
	Id          string `db:"id"`
	CreatedAt   int64  `db:"created_at"`
	ImplName    string `db:"impl_name"`
	ImplValue   []byte `db:"impl_value"`
	PolicyNames []byte `db:"policy_names"`
	PolicyData  []byte `db:"policy_data"`
}

func toJobRecord(job domain.Job) (jobRecord, error) {
	policyNames, err := json.Marshal(job.Policies.Names)
	if err != nil {
		return jobRecord{}, fmt.Errorf("postgres: marshal policy names: %w", err)
	}
	policyData, err := json.Marshal(job.Policies.Data)
	if err != nil {
		return jobRecord{}, fmt.Errorf("postgres: marshal policy data: %w", err)
	}
	return jobRecord{
		Id:          job.Id.String(),
		CreatedAt:   millis(job.CreatedAt),
		ImplName:    string(job.Impl.Name),
		ImplValue:   []byte(job.Impl.Value),
		PolicyNames: policyNames,
		PolicyData:  policyData,
	}, nil
}

func (r jobRecord) toDomain() (domain.Job, error) {
	id, err := domain.JobIdFromString(r.Id)
	if err != nil {
		return domain.Job{}, fmt.Errorf("postgres: parse job id: %w", err)
	}
	var names []domain.PolicyName
	if err := json.Unmarshal(r.PolicyNames, &names); err != nil {
		return domain.Job{}, fmt.Errorf("postgres: unmarshal policy names: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(r.PolicyData, &data); err != nil {
		return domain.Job{}, fmt.Errorf("postgres: unmarshal policy data: %w", err)
	}
	return domain.Job{
		Id:        id,
		CreatedAt: fromMillis(r.CreatedAt),
		Impl: domain.SerializedImpl{
			Name:  domain.JobImplName(r.ImplName),
			Value: r.ImplValue,
		},
		Policies: domain.Policies{Names: names, Data: data},
	}, nil
}

type jobRepo struct {
	db *sqlx.DB
}

func (r *jobRepo) Get(ctx context.Context, id domain.JobId) (*domain.Job, error) {
	var rec jobRecord
	err := r.db.GetContext(ctx, &rec, `SELECT id, created_at, impl_name, impl_value, policy_names, policy_data FROM job WHERE id = $1`, id.String())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("job get", err)
	}
	job, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) Add(ctx context.Context, job domain.Job) error {
	rec, err := toJobRecord(job)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO job (id, created_at, impl_name, impl_value, policy_names, policy_data) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Id, rec.CreatedAt, rec.ImplName, rec.ImplValue, rec.PolicyNames, rec.PolicyData,
	)
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(err)
	}
	if err != nil {
		return domain.NewInternalError("job add", err)
	}
	return nil
}

func (r *jobRepo) Delete(ctx context.Context, id domain.JobId) (domain.Job, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if job == nil {
		return domain.Job{}, domain.NewNotFoundError(nil)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM job WHERE id = $1`, id.String()); err != nil {
		return domain.Job{}, domain.NewInternalError("job delete", err)
	}
	return *job, nil
}

func (r *jobRepo) UpdatePolicies(ctx context.Context, id domain.JobId, policies domain.Policies) error {
	names, err := json.Marshal(policies.Names)
	if err != nil {
		return fmt.Errorf("postgres: marshal policy names: %w", err)
	}
	data, err := json.Marshal(policies.Data)
	if err != nil {
		return fmt.Errorf("postgres: marshal policy data: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `UPDATE job SET policy_names = $2, policy_data = $3 WHERE id = $1`, id.String(), names, data)
	if err != nil {
		return domain.NewInternalError("job update policies", err)
	}
	return nil
}

type pendingJobRepo struct {
	db *sqlx.DB
}

type pendingJobRecord struct {
	JobId       string `db:"job_id"`
	ScheduledAt int64  `db:"scheduled_at"`
}

func (r pendingJobRecord) toDomain() (domain.PendingJob, error) {
	id, err := domain.JobIdFromString(r.JobId)
	if err != nil {
		return domain.PendingJob{}, fmt.Errorf("postgres: parse job id: %w", err)
	}
	return domain.NewPendingJob(id, fromMillis(r.ScheduledAt)), nil
}

func (r *pendingJobRepo) Get(ctx context.Context, jobId domain.JobId) (*domain.PendingJob, error) {
	var rec pendingJobRecord
	err := r.db.GetContext(ctx, &rec, `SELECT job_id, scheduled_at FROM pending_job WHERE job_id = $1`, jobId.String())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("pending job get", err)
	}
	p, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pendingJobRepo) Add(ctx context.Context, pending domain.PendingJob) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO pending_job (job_id, scheduled_at) VALUES ($1, $2)`, pending.JobId.String(), millis(pending.ScheduledAt))
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(err)
	}
	if err != nil {
		return domain.NewInternalError("pending job add", err)
	}
	return nil
}

func (r *pendingJobRepo) Delete(ctx context.Context, jobId domain.JobId) (domain.PendingJob, error) {
	p, err := r.Get(ctx, jobId)
	if err != nil {
		return domain.PendingJob{}, err
	}
	if p == nil {
		return domain.PendingJob{}, domain.NewNotFoundError(nil)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_job WHERE job_id = $1`, jobId.String()); err != nil {
		return domain.PendingJob{}, domain.NewInternalError("pending job delete", err)
	}
	return *p, nil
}

// PopScheduled runs the earliest-due pending row through a single
// transaction, the SQL analogue of the reference in-memory backend's
// lock-guarded pop: SELECT ... FOR UPDATE SKIP LOCKED picks one row
// without blocking on rows other workers may be claiming, then DELETE
// removes it before commit.
func (r *pendingJobRepo) PopScheduled(ctx context.Context, now time.Time) (*domain.PendingJob, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.NewInternalError("pending job pop: begin tx", err)
	}
	defer tx.Rollback()

	var rec pendingJobRecord
	err = tx.GetContext(ctx, &rec,
		`SELECT job_id, scheduled_at FROM pending_job WHERE scheduled_at < $1 ORDER BY scheduled_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED`,
		millis(now),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("pending job pop: select", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_job WHERE job_id = $1`, rec.JobId); err != nil {
		return nil, domain.NewInternalError("pending job pop: delete", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.NewInternalError("pending job pop: commit", err)
	}

	p, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type runningJobRepo struct {
	db *sqlx.DB
}

type runningJobRecord struct {
	JobId     string `db:"job_id"`
	RunId     string `db:"run_id"`
	StartedAt int64  `db:"started_at"`
}

func (r runningJobRecord) toDomain() (domain.RunningJob, error) {
	jobId, err := domain.JobIdFromString(r.JobId)
	if err != nil {
		return domain.RunningJob{}, fmt.Errorf("postgres: parse job id: %w", err)
	}
	runId, err := domain.RunIdFromString(r.RunId)
	if err != nil {
		return domain.RunningJob{}, fmt.Errorf("postgres: parse run id: %w", err)
	}
	return domain.NewRunningJob(jobId, runId, fromMillis(r.StartedAt)), nil
}

func (r *runningJobRepo) Get(ctx context.Context, jobId domain.JobId) (*domain.RunningJob, error) {
	var rec runningJobRecord
	err := r.db.GetContext(ctx, &rec, `SELECT job_id, run_id, started_at FROM running_job WHERE job_id = $1`, jobId.String())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("running job get", err)
	}
	j, err := rec.toDomain()
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *runningJobRepo) Add(ctx context.Context, running domain.RunningJob) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO running_job (job_id, run_id, started_at) VALUES ($1, $2, $3)`,
		running.JobId.String(), running.RunId.String(), millis(running.StartedAt))
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(err)
	}
	if err != nil {
		return domain.NewInternalError("running job add", err)
	}
	return nil
}

func (r *runningJobRepo) Delete(ctx context.Context, jobId domain.JobId) (domain.RunningJob, error) {
	j, err := r.Get(ctx, jobId)
	if err != nil {
		return domain.RunningJob{}, err
	}
	if j == nil {
		return domain.RunningJob{}, domain.NewNotFoundError(nil)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM running_job WHERE job_id = $1`, jobId.String()); err != nil {
		return domain.RunningJob{}, domain.NewInternalError("running job delete", err)
	}
	return *j, nil
}

type successfulRunRepo struct {
	db *sqlx.DB
}

func (r *successfulRunRepo) Get(ctx context.Context, runId domain.RunId) (*domain.SuccessfulRun, error) {
	var rec struct {
		RunId       string `db:"run_id"`
		JobId       string `db:"job_id"`
		ScheduledAt int64  `db:"scheduled_at"`
		FinishedAt  int64  `db:"finished_at"`
		Report      []byte `db:"report"`
	}
	err := r.db.GetContext(ctx, &rec, `SELECT run_id, job_id, scheduled_at, finished_at, report FROM successful_run WHERE run_id = $1`, runId.String())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("successful run get", err)
	}
	jobId, err := domain.JobIdFromString(rec.JobId)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse job id: %w", err)
	}
	var report domain.Report
	if err := json.Unmarshal(rec.Report, &report); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal report: %w", err)
	}
	run := domain.NewSuccessfulRun(runId, jobId, fromMillis(rec.ScheduledAt), fromMillis(rec.FinishedAt), report)
	return &run, nil
}

func (r *successfulRunRepo) Add(ctx context.Context, run domain.SuccessfulRun) error {
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("postgres: marshal report: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO successful_run (run_id, job_id, scheduled_at, finished_at, report) VALUES ($1, $2, $3, $4, $5)`,
		run.RunId.String(), run.JobId.String(), millis(run.ScheduledAt), millis(run.FinishedAt), report,
	)
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(err)
	}
	if err != nil {
		return domain.NewInternalError("successful run add", err)
	}
	return nil
}

type failedRunRepo struct {
	db *sqlx.DB
}

func (r *failedRunRepo) Get(ctx context.Context, runId domain.RunId) (*domain.FailedRun, error) {
	var rec struct {
		RunId       string `db:"run_id"`
		JobId       string `db:"job_id"`
		ScheduledAt int64  `db:"scheduled_at"`
		FinishedAt  int64  `db:"finished_at"`
		Error       string `db:"error"`
	}
	err := r.db.GetContext(ctx, &rec, `SELECT run_id, job_id, scheduled_at, finished_at, error FROM failed_run WHERE run_id = $1`, runId.String())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("failed run get", err)
	}
	jobId, err := domain.JobIdFromString(rec.JobId)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse job id: %w", err)
	}
	run := domain.NewFailedRun(runId, jobId, fromMillis(rec.ScheduledAt), fromMillis(rec.FinishedAt), fmt.Errorf("%s", rec.Error))
	return &run, nil
}

func (r *failedRunRepo) Add(ctx context.Context, run domain.FailedRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO failed_run (run_id, job_id, scheduled_at, finished_at, error) VALUES ($1, $2, $3, $4, $5)`,
		run.RunId.String(), run.JobId.String(), millis(run.ScheduledAt), millis(run.FinishedAt), run.Error,
	)
	if isUniqueViolation(err) {
		return domain.NewAlreadyExistsError(err)
	}
	if err != nil {
		return domain.NewInternalError("failed run add", err)
	}
	return nil
}
