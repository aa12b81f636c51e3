package runner

import (
	"github.com/qa-infra/scenario-acceptor/retry"
	"github.com/qa-infra/scenario-acceptor/types"
)

// StaticPolicy applies the same retry policy to every unit
type StaticPolicy retry.Policy

// PolicyFor implements PolicySelector
func (p StaticPolicy) PolicyFor(types.TestUnit) retry.Policy {
	return retry.Policy(p)
}

// KindPolicies selects a policy by unit kind, falling back to a default.
// This mirrors the conventional per-kind presets: API scenarios retry
// network-ish failures with backoff, UI scenarios retry anything once.
type KindPolicies struct {
	Default retry.Policy
	PerKind map[types.TestKind]retry.Policy
}

// PolicyFor implements PolicySelector
func (p KindPolicies) PolicyFor(unit types.TestUnit) retry.Policy {
	if policy, ok := p.PerKind[unit.Kind]; ok {
		return policy
	}
	return p.Default
}
