// Package policy implements the middleware chain wrapped around a job's
// run/on_success/on_fail closures. A Policy contributes to one or more of
// those three call shapes; it leaves the others untouched by embedding
// NoopWraps.
package policy

import (
	"github.com/sobczal2/jobfire/domain"
	"github.com/sobczal2/jobfire/execctx"
	"github.com/sobczal2/jobfire/registry"
)

// Data is a policy's private, per-job key/value scratch space, backed by
// the same map a Job persists as Policies.Data. Policies read and write
// their own keys here; InstantRetry namespaces its keys under
// "jobfire.instant_retry." to avoid collisions between policies on the
// same job, and Timeout keeps no per-job keys.
type Data map[string]any

// Policy is the full capability set a middleware may implement. Name must
// be unique within one PolicyRegistry. Init seeds Data when the package
// function Init is called for a job carrying this policy; the three WrapX methods take an
// existing closure and return a replacement of the same shape.
type Policy interface {
	Name() domain.PolicyName
	Init(data Data)
	WrapRun(next registry.RunFunc, data Data) registry.RunFunc
	WrapOnSuccess(next registry.CallbackFunc, data Data) registry.CallbackFunc
	WrapOnFail(next registry.CallbackFunc, data Data) registry.CallbackFunc
}

// NoopWraps is embedded by policies that only care about a subset of the
// three wrap points. Go has no default interface methods, so this struct
// stands in for one: embed it and override only what you need.
type NoopWraps struct{}

func (NoopWraps) Init(Data) {}

func (NoopWraps) WrapRun(next registry.RunFunc, _ Data) registry.RunFunc { return next }

func (NoopWraps) WrapOnSuccess(next registry.CallbackFunc, _ Data) registry.CallbackFunc {
	return next
}

func (NoopWraps) WrapOnFail(next registry.CallbackFunc, _ Data) registry.CallbackFunc {
	return next
}
