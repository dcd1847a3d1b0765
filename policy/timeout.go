package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/registry"
)

// Timeout races a job's run closure against a fixed duration, reporting
// PolicyShortCircuit if the closure hasn't returned in time. The closure
// itself keeps running in its own goroutine after the race is lost — Go
// has no way to forcibly preempt it, so a job body that wants to react to
// the timeout must watch ctx.Done() itself.
type Timeout struct {
	NoopWraps
	Duration time.Duration
}

// NewTimeout builds a Timeout policy bounding a run to d.
func NewTimeout(d time.Duration) *Timeout {
	return &Timeout{Duration: d}
}

func (p *Timeout) Name() domain.PolicyName {
	return domain.PolicyName(fmt.Sprintf("jobfire.timeout.%s", p.Duration))
}

func (p *Timeout) WrapRun(next registry.RunFunc, _ Data) registry.RunFunc {
	return func(ctx context.Context, impl domain.SerializedImpl, jobCtx *execctx.Context) (domain.Report, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, p.Duration)
		defer cancel()

		type result struct {
			report domain.Report
			err    error
		}
		done := make(chan result, 1)
		go func() {
			report, err := next(timeoutCtx, impl, jobCtx)
			done <- result{report, err}
		}()

		select {
		case r := <-done:
			return r.report, r.err
		case <-timeoutCtx.Done():
			slog.Warn("timeout policy: run did not finish in time", "timeout", p.Duration)
			return domain.Report{}, domain.ErrPolicyShortCircuit
		}
	}
}
