package domain

import "time"

// PendingJob is a queue entry: a Job id plus the time it becomes eligible
// for dispatch. At most one PendingJob exists per job_id at any time
// it is removed the instant a poll pops it, whether or not
// the subsequent RunningJob handoff succeeds.
type PendingJob struct {
	JobId       JobId     `json:"job_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// NewPendingJob builds a PendingJob entry for the given job at the given
// due time.
func NewPendingJob(jobId JobId, scheduledAt time.Time) PendingJob {
	return PendingJob{JobId: jobId, ScheduledAt: scheduledAt}
}
