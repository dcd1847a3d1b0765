package policy

import (
	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/registry"
)

// Chain assembles the policy-wrapped run/on_success/on_fail closures for
// one job. Wrapping proceeds left to right over policies.Names: the first
// name wraps the base closure directly (innermost at call time), each
// later name wraps the closure produced by the one before it, so the last
// name in the list is the outermost wrapper and runs first when the chain
// is invoked. An unknown name fails chain assembly with ErrPolicyNotFound.
func Chain(reg *PolicyRegistry, names []domain.PolicyName, data Data, base registry.JobActions) (registry.JobActions, error) {
	run := base.Run
	onSuccess := base.OnSuccess
	onFail := base.OnFail

	for _, name := range names {
		p, ok := reg.Lookup(name)
		if !ok {
			return registry.JobActions{}, domain.ErrPolicyNotFound
		}
		run = p.WrapRun(run, data)
		onSuccess = p.WrapOnSuccess(onSuccess, data)
		onFail = p.WrapOnFail(onFail, data)
	}

	return registry.JobActions{Run: run, OnSuccess: onSuccess, OnFail: onFail}, nil
}

// Init seeds policy-scoped initial Data for every named policy, in
// order. Neither Manager.Schedule nor JobRunner calls it; a caller that
// wants seeded Data calls Init on the Job's Policies before adding the
// Job to storage.
func Init(reg *PolicyRegistry, names []domain.PolicyName, data Data) error {
	for _, name := range names {
		p, ok := reg.Lookup(name)
		if !ok {
			return domain.ErrPolicyNotFound
		}
		p.Init(data)
	}
	return nil
}
