// Package worker implements the single-instance background loop that
// polls due jobs and dispatches each to a runner on its own goroutine.
package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/runner"
	"github.com/sobczal2/jobfire/storage"
)

type commandKind int

const cmdStop commandKind = iota

type command struct {
	kind  commandKind
	reply chan struct{}
}

// JobWorker polls PendingJobRepo.PopScheduled on a fixed interval and
// dispatches each due job to a JobRunner on an independent goroutine. The
// loop never waits on a dispatched job to finish.
type JobWorker struct {
	settings  Settings
	storage   *storage.Storage
	jobRunner *runner.JobRunner

	state   atomic.Int32
	cmdChan chan command
}

// New builds a JobWorker in the Stopped state.
func New(settings Settings, store *storage.Storage, jobRunner *runner.JobRunner) *JobWorker {
	return &JobWorker{
		settings:  settings,
		storage:   store,
		jobRunner: jobRunner,
		cmdChan:   make(chan command, settings.CommandChannelSize),
	}
}

// Verify satisfies execctx.VerifyService.
func (w *JobWorker) Verify() error {
	if err := w.settings.Validate(); err != nil {
		return err
	}
	switch {
	case w.storage == nil:
		return &domain.ServiceMissingError{Name: "JobWorker.storage"}
	case w.jobRunner == nil:
		return &domain.ServiceMissingError{Name: "JobWorker.jobRunner"}
	}
	return nil
}

// State returns the worker's current lifecycle state.
func (w *JobWorker) State() State {
	return State(w.state.Load())
}

// Start spawns the background loop and returns a Handle for observing
// state and requesting a stop. Start is not idempotent: calling it twice
// on the same JobWorker runs two competing loops.
func (w *JobWorker) Start(ctx context.Context) *Handle {
	w.state.Store(int32(Starting))
	go w.loop(ctx)
	return &Handle{commands: w.cmdChan, state: w.State}
}

func (w *JobWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.settings.PollRate)
	defer ticker.Stop()
	defer w.state.Store(int32(Stopped))

	w.state.Store(int32(Started))
	slog.Info("job worker started", "poll_rate", w.settings.PollRate)

	for {
		select {
		case cmd := <-w.cmdChan:
			switch cmd.kind {
			case cmdStop:
				w.state.Store(int32(Stopping))
				slog.Info("job worker stopping")
				cmd.reply <- struct{}{}
				return
			}
		case <-ticker.C:
			w.pollOnce(ctx)
		case <-ctx.Done():
			w.state.Store(int32(Stopping))
			return
		}
	}
}

func (w *JobWorker) pollOnce(ctx context.Context) {
	pending, err := w.storage.PendingJobs.PopScheduled(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("job worker: poll failed", "error", err)
		return
	}
	if pending == nil {
		return
	}
	go w.jobRunner.Run(ctx, *pending)
}

// Handle is the caller-facing control surface returned by Start: a
// command channel to request a stop, and a read-only view of state.
type Handle struct {
	commands chan<- command
	state    func() State
}

// State returns the worker's current lifecycle state.
func (h *Handle) State() State {
	return h.state()
}

// Stop requests the worker stop and blocks until it reaches Stopped or
// ctx is done. In-flight per-job dispatches are never cancelled by Stop;
// they run to completion independently of the worker loop.
func (h *Handle) Stop(ctx context.Context) error {
	reply := make(chan struct{}, 1)
	select {
	case h.commands <- command{kind: cmdStop, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-reply:
	case <-ctx.Done():
		return ctx.Err()
	}

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		if h.State() == Stopped {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
