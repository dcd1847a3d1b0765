package domain

import "time"

// SuccessfulRun is the append-only terminal record of a run that completed
// without error. RunId is unique across both SuccessfulRun and FailedRun
// for all time.
type SuccessfulRun struct {
	RunId       RunId     `json:"run_id"`
	JobId       JobId     `json:"job_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Report      Report    `json:"report"`
}

// NewSuccessfulRun builds a SuccessfulRun row from the run's identifying
// information and its report.
func NewSuccessfulRun(runId RunId, jobId JobId, scheduledAt, finishedAt time.Time, report Report) SuccessfulRun {
	return SuccessfulRun{
		RunId:       runId,
		JobId:       jobId,
		ScheduledAt: scheduledAt,
		FinishedAt:  finishedAt,
		Report:      report,
	}
}

// FailedRun is the append-only terminal record of a run that errored,
// whether from the job body itself or from policy/registry failure.
type FailedRun struct {
	RunId       RunId     `json:"run_id"`
	JobId       JobId     `json:"job_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Error       string    `json:"error"`
}

// NewFailedRun builds a FailedRun row from the run's identifying
// information and the error that terminated it.
func NewFailedRun(runId RunId, jobId JobId, scheduledAt, finishedAt time.Time, err error) FailedRun {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return FailedRun{
		RunId:       runId,
		JobId:       jobId,
		ScheduledAt: scheduledAt,
		FinishedAt:  finishedAt,
		Error:       message,
	}
}
