package policy

import (
	"github.com/sobczal2/jobfire/domain"
)

// PolicyRegistry is the immutable, built-once map from PolicyName to a
// Policy instance. A Manager holds exactly one; every job's Policies.Names
// are looked up against it when a run is assembled.
type PolicyRegistry struct {
	policies map[domain.PolicyName]Policy
}

// Lookup returns the registered Policy for name, or false if it was never
// registered.
func (r *PolicyRegistry) Lookup(name domain.PolicyName) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Builder accumulates Policy registrations before PolicyRegistry is
// frozen.
type Builder struct {
	policies map[domain.PolicyName]Policy
}

// NewBuilder starts an empty PolicyRegistry builder.
func NewBuilder() *Builder {
	return &Builder{policies: make(map[domain.PolicyName]Policy)}
}

// Register adds p to the registry under p.Name(). Registering the same
// name twice overwrites the earlier one.
func (b *Builder) Register(p Policy) *Builder {
	b.policies[p.Name()] = p
	return b
}

// Build freezes the accumulated registrations into an immutable
// PolicyRegistry.
func (b *Builder) Build() *PolicyRegistry {
	frozen := make(map[domain.PolicyName]Policy, len(b.policies))
	for k, v := range b.policies {
		frozen[k] = v
	}
	return &PolicyRegistry{policies: frozen}
}
