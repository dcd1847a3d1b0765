package policy

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/registry"
)

// RateLimit bounds how often the wrapped run closure may start, using a
// token-bucket limiter shared across every job carrying this policy
// instance. Unlike InstantRetry and Timeout, RateLimit's state lives on
// the policy value itself rather than in per-job Data, since the quota it
// enforces is global, not per-job.
type RateLimit struct {
	NoopWraps
	name    domain.PolicyName
	limiter *rate.Limiter
}

// NewRateLimit builds a RateLimit policy allowing up to ratePerSecond
// runs per second, with bursts up to burst.
func NewRateLimit(name domain.PolicyName, ratePerSecond float64, burst int) *RateLimit {
	return &RateLimit{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (p *RateLimit) Name() domain.PolicyName { return p.name }

func (p *RateLimit) WrapRun(next registry.RunFunc, _ Data) registry.RunFunc {
	return func(ctx context.Context, impl domain.SerializedImpl, jobCtx *execctx.Context) (domain.Report, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.Report{}, fmt.Errorf("rate limit: %w: %w", domain.ErrPolicyShortCircuit, err)
		}
		return next(ctx, impl, jobCtx)
	}
}
