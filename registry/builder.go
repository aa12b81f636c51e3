package registry

import (
	"fmt"

	"github.com/qa-infra/scenario-acceptor/types"
)

// GroupBuilder accumulates test groups through fluent selection calls.
// Each selection appends exactly one group, in call order; Build returns
// the groups accumulated so far without resetting, so a builder may be
// reused or discarded. Groups are independent views over the discovered
// unit set: the same unit may land in several groups.
type GroupBuilder struct {
	registry *Registry
	groups   []types.TestGroup
	used     map[string]int
}

// NewGroupBuilder creates a builder over the registry's unit set
func NewGroupBuilder(registry *Registry) *GroupBuilder {
	return &GroupBuilder{
		registry: registry,
		used:     make(map[string]int),
	}
}

// AddKind appends a group containing every unit of the given kind.
// A kind with zero matching units yields an empty group.
func (b *GroupBuilder) AddKind(kind types.TestKind) *GroupBuilder {
	units := b.registry.UnitsByKind(kind)
	return b.append(kind.String(), kind.String(), units)
}

// AddTag appends a group containing every unit carrying the given tag
func (b *GroupBuilder) AddTag(tag string) *GroupBuilder {
	units := b.registry.UnitsByTag(tag)
	return b.append(tag, tag, units)
}

// AddSmoke appends the conventional smoke-tagged group
func (b *GroupBuilder) AddSmoke() *GroupBuilder {
	return b.AddTag("smoke")
}

// AddRegression appends the conventional regression-tagged group
func (b *GroupBuilder) AddRegression() *GroupBuilder {
	return b.AddTag("regression")
}

// AddGroup appends a group from a manifest declaration. A declaration
// selects by kind or by tag; kind wins when both are set.
func (b *GroupBuilder) AddGroup(cfg types.GroupConfig) *GroupBuilder {
	var units []types.TestUnit
	switch {
	case cfg.Kind != "":
		units = b.registry.UnitsByKind(cfg.Kind)
	case cfg.Tag != "":
		units = b.registry.UnitsByTag(cfg.Tag)
	}

	id := cfg.ID
	if id == "" {
		id = cfg.Kind.String()
		if id == "" {
			id = cfg.Tag
		}
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = id
	}
	return b.append(id, strategy, units)
}

// Build returns the groups accumulated so far, in selection-call order
func (b *GroupBuilder) Build() []types.TestGroup {
	groups := make([]types.TestGroup, len(b.groups))
	copy(groups, b.groups)
	return groups
}

// append adds one group, disambiguating repeated selector names
func (b *GroupBuilder) append(id, strategy string, units []types.TestUnit) *GroupBuilder {
	b.used[id]++
	if n := b.used[id]; n > 1 {
		id = fmt.Sprintf("%s-%d", id, n)
	}
	b.groups = append(b.groups, types.TestGroup{
		ID:       id,
		Strategy: strategy,
		Units:    units,
	})
	return b
}
