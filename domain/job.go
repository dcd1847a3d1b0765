package domain

import (
	"encoding/json"
	"time"
)

// JobImplName is the opaque, user-chosen tag a Job's body is registered
// under in a JobActionsRegistry. Unique within one registry.
type JobImplName string

// SerializedImpl is the self-describing, wire-stable encoding of a job
// body: a type tag plus its arbitrary JSON payload.
type SerializedImpl struct {
	Name  JobImplName     `json:"name"`
	Value json.RawMessage `json:"value"`
}

// PolicyName is the opaque tag a Policy registers itself under in a
// PolicyRegistry. Unique within that registry.
type PolicyName string

// Policies is the ordered middleware chain bound to a Job, plus the
// key/value data those policies mutate across runs (e.g. a retry
// counter). Names is immutable after the Job is created; Data is the only
// field of a Job mutated post-creation, and only by policy code via the
// storage layer.
type Policies struct {
	Names []PolicyName   `json:"names"`
	Data  map[string]any `json:"data"`
}

// NewPolicies builds a Policies value with an empty data map, ready for
// policies' Init to populate.
func NewPolicies(names ...PolicyName) Policies {
	return Policies{
		Names: names,
		Data:  make(map[string]any),
	}
}

// Clone returns a deep-enough copy for safe concurrent mutation: the Names
// slice and Data map are both copied, so policy wrappers racing on the
// same Job never observe each other's partial writes.
func (p Policies) Clone() Policies {
	names := make([]PolicyName, len(p.Names))
	copy(names, p.Names)
	data := make(map[string]any, len(p.Data))
	for k, v := range p.Data {
		data[k] = v
	}
	return Policies{Names: names, Data: data}
}

// Job is the persistent, immutable-except-for-policy-data definition of a
// unit of work. It is never removed by cancellation — only by
// explicit deletion through JobRepo.
type Job struct {
	Id        JobId          `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Impl      SerializedImpl `json:"impl"`
	Policies  Policies       `json:"policies"`
}

// NewJob materializes a Job from an already-serialized implementation,
// stamping the creation time and attaching the policy chain it will run
// under.
func NewJob(id JobId, now time.Time, impl SerializedImpl, policies Policies) Job {
	return Job{
		Id:        id,
		CreatedAt: now,
		Impl:      impl,
		Policies:  policies,
	}
}

// Report is the opaque success payload a job's run function returns.
// jobfire does not interpret its contents; it is recorded verbatim on the
// SuccessfulRun row.
type Report struct {
	Data map[string]any `json:"data,omitempty"`
}

// NewReport returns an empty Report, for jobs that only care about
// success or failure and carry no payload.
func NewReport() Report { return Report{} }
