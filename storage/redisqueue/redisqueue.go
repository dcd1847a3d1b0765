// Package redisqueue implements PendingJobRepo and RunningJobRepo against
// Redis, for callers who want the queue itself distributed while keeping
// Job/SuccessfulRun/FailedRun in a relational store (storage/postgres is
// the natural pairing). It reshapes the list-based pending/running queue
// idiom into a sorted set keyed by due time, since PopScheduled needs
// "earliest due, if any are due" rather than plain FIFO.
package redisqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sobczal2/jobfire/domain"
)

const (
	defaultPendingKey = "jobfire:pending"
	runningKeyPrefix  = "jobfire:running:"
)

// popScheduledScript atomically finds the lowest-scored member due before
// now and removes it, so two workers racing PopScheduled never both win
// the same job. WITHSCORES so the caller can rebuild the real
// scheduled_at instead of substituting the poll time.
var popScheduledScript = redis.NewScript(`
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'WITHSCORES', 'LIMIT', 0, 1)
if #members == 0 then
	return false
end
redis.call('ZREM', KEYS[1], members[1])
return members
`)

// PendingJobRepo is a storage.PendingJobRepo backed by a Redis sorted set,
// scored by scheduled_at in Unix milliseconds.
type PendingJobRepo struct {
	client *redis.Client
	key    string
}

// NewPendingJobRepo builds a PendingJobRepo using client. An empty key
// defaults to "jobfire:pending".
func NewPendingJobRepo(client *redis.Client, key string) *PendingJobRepo {
	if key == "" {
		key = defaultPendingKey
	}
	return &PendingJobRepo{client: client, key: key}
}

func (r *PendingJobRepo) Get(ctx context.Context, jobId domain.JobId) (*domain.PendingJob, error) {
	score, err := r.client.ZScore(ctx, r.key, jobId.String()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("redis pending get", err)
	}
	p := domain.NewPendingJob(jobId, time.UnixMilli(int64(score)).UTC())
	return &p, nil
}

func (r *PendingJobRepo) Add(ctx context.Context, pending domain.PendingJob) error {
	added, err := r.client.ZAddNX(ctx, r.key, redis.Z{
		Score:  float64(pending.ScheduledAt.UnixMilli()),
		Member: pending.JobId.String(),
	}).Result()
	if err != nil {
		return domain.NewInternalError("redis pending add", err)
	}
	if added == 0 {
		return domain.NewAlreadyExistsError(nil)
	}
	return nil
}

func (r *PendingJobRepo) Delete(ctx context.Context, jobId domain.JobId) (domain.PendingJob, error) {
	pending, err := r.Get(ctx, jobId)
	if err != nil {
		return domain.PendingJob{}, err
	}
	if pending == nil {
		return domain.PendingJob{}, domain.NewNotFoundError(nil)
	}
	removed, err := r.client.ZRem(ctx, r.key, jobId.String()).Result()
	if err != nil {
		return domain.PendingJob{}, domain.NewInternalError("redis pending delete", err)
	}
	if removed == 0 {
		return domain.PendingJob{}, domain.NewNotFoundError(nil)
	}
	return *pending, nil
}

// PopScheduled returns and removes the earliest-due member whose score is
// strictly before now, or (nil, nil) if none are due.
func (r *PendingJobRepo) PopScheduled(ctx context.Context, now time.Time) (*domain.PendingJob, error) {
	// ZRANGEBYSCORE '-inf' to now is inclusive of now; jobfire's contract
	// wants strictly-before, so shave one millisecond off the bound.
	bound := now.UnixMilli() - 1
	res, err := popScheduledScript.Run(ctx, r.client, []string{r.key}, bound).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("redis pending pop", err)
	}
	if b, ok := res.(bool); ok && !b {
		return nil, nil
	}
	pair, ok := res.([]any)
	if !ok || len(pair) != 2 {
		return nil, domain.NewCustomStorageError("redis: unexpected pop result shape")
	}
	member, ok := pair[0].(string)
	if !ok {
		return nil, domain.NewCustomStorageError("redis: unexpected pop member type")
	}
	scoreStr, ok := pair[1].(string)
	if !ok {
		return nil, domain.NewCustomStorageError("redis: unexpected pop score type")
	}
	jobId, err := domain.JobIdFromString(member)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: parse job id: %w", err)
	}
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: parse scheduled_at score: %w", err)
	}
	p := domain.NewPendingJob(jobId, time.UnixMilli(int64(score)).UTC())
	return &p, nil
}

// RunningJobRepo is a storage.RunningJobRepo backed by Redis string keys,
// one per claimed job, set with NX so at-most-one claim wins.
type RunningJobRepo struct {
	client *redis.Client
	prefix string
}

// NewRunningJobRepo builds a RunningJobRepo using client. An empty prefix
// defaults to "jobfire:running:".
func NewRunningJobRepo(client *redis.Client, prefix string) *RunningJobRepo {
	if prefix == "" {
		prefix = runningKeyPrefix
	}
	return &RunningJobRepo{client: client, prefix: prefix}
}

type runningJobValue struct {
	RunId     string `json:"run_id"`
	StartedAt int64  `json:"started_at"`
}

func (r *RunningJobRepo) key(jobId domain.JobId) string {
	return r.prefix + jobId.String()
}

func (r *RunningJobRepo) Get(ctx context.Context, jobId domain.JobId) (*domain.RunningJob, error) {
	raw, err := r.client.Get(ctx, r.key(jobId)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("redis running get", err)
	}
	var v runningJobValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("redisqueue: unmarshal running job: %w", err)
	}
	runId, err := domain.RunIdFromString(v.RunId)
	if err != nil {
		return nil, fmt.Errorf("redisqueue: parse run id: %w", err)
	}
	running := domain.NewRunningJob(jobId, runId, time.UnixMilli(v.StartedAt).UTC())
	return &running, nil
}

func (r *RunningJobRepo) Add(ctx context.Context, running domain.RunningJob) error {
	raw, err := json.Marshal(runningJobValue{RunId: running.RunId.String(), StartedAt: running.StartedAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("redisqueue: marshal running job: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(running.JobId), raw, 0).Result()
	if err != nil {
		return domain.NewInternalError("redis running add", err)
	}
	if !ok {
		return domain.NewAlreadyExistsError(nil)
	}
	return nil
}

func (r *RunningJobRepo) Delete(ctx context.Context, jobId domain.JobId) (domain.RunningJob, error) {
	raw, err := r.client.GetDel(ctx, r.key(jobId)).Bytes()
	if err == redis.Nil {
		return domain.RunningJob{}, domain.NewNotFoundError(nil)
	}
	if err != nil {
		return domain.RunningJob{}, domain.NewInternalError("redis running delete", err)
	}
	var v runningJobValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.RunningJob{}, fmt.Errorf("redisqueue: unmarshal running job: %w", err)
	}
	runId, err := domain.RunIdFromString(v.RunId)
	if err != nil {
		return domain.RunningJob{}, fmt.Errorf("redisqueue: parse run id: %w", err)
	}
	return domain.NewRunningJob(jobId, runId, time.UnixMilli(v.StartedAt).UTC()), nil
}
