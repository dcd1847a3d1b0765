package policy

import (
	"context"
	"log/slog"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/registry"
)

const (
	instantRetryMaxTriesKey   = "jobfire.instant_retry.max_tries"
	instantRetryCurrentTryKey = "jobfire.instant_retry.current_try"
)

// InstantRetry re-invokes a job's run closure immediately on failure, up
// to MaxTries attempts, stopping at the first success.
type InstantRetry struct {
	NoopWraps
	MaxTries uint32
}

// NewInstantRetry builds an InstantRetry policy with the given attempt
// budget. A MaxTries of 0 means the inner run is never invoked and the
// policy reports PolicyShortCircuit.
func NewInstantRetry(maxTries uint32) *InstantRetry {
	return &InstantRetry{MaxTries: maxTries}
}

func (p *InstantRetry) Name() domain.PolicyName {
	return domain.PolicyName("jobfire.instant_retry")
}

func (p *InstantRetry) Init(data Data) {
	data[instantRetryMaxTriesKey] = p.MaxTries
	data[instantRetryCurrentTryKey] = uint32(0)
}

func (p *InstantRetry) WrapRun(next registry.RunFunc, data Data) registry.RunFunc {
	return func(ctx context.Context, impl domain.SerializedImpl, jobCtx *execctx.Context) (domain.Report, error) {
		maxTries := p.MaxTries
		if v, ok := data[instantRetryMaxTriesKey]; ok {
			if n, ok := toUint32(v); ok {
				maxTries = n
			}
		}

		var (
			report domain.Report
			err    error = domain.ErrPolicyShortCircuit
		)
		for currentTry := uint32(0); currentTry < maxTries; currentTry++ {
			data[instantRetryCurrentTryKey] = currentTry + 1
			report, err = next(ctx, impl, jobCtx)
			if err == nil {
				break
			}
			slog.Warn("instant retry: attempt failed", "attempt", currentTry+1, "max_tries", maxTries, "error", err)
		}
		return report, err
	}
}

// toUint32 handles the fact that policy data may round-trip through JSON,
// where numeric values decode as float64 rather than uint32.
func toUint32(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case int:
		return uint32(n), true
	case float64:
		return uint32(n), true
	default:
		return 0, false
	}
}
