package types

// TestGroup is a named, ordered collection of test units selected for
// batched execution. Membership is fixed once the group is built; the
// same unit may appear in more than one group.
type TestGroup struct {
	ID       string
	Strategy string // execution strategy tag, e.g. "api", "ui", "smoke"
	Units    []TestUnit
}

// Size returns the number of units in the group
func (g TestGroup) Size() int {
	return len(g.Units)
}

// IsEmpty reports whether the group matched zero units. An empty group
// is a valid selection outcome, not an error.
func (g TestGroup) IsEmpty() bool {
	return len(g.Units) == 0
}

// GroupConfig declares a group selection in the scenario manifest
type GroupConfig struct {
	ID       string   `yaml:"id"`
	Kind     TestKind `yaml:"kind,omitempty"`
	Tag      string   `yaml:"tag,omitempty"`
	Strategy string   `yaml:"strategy,omitempty"`
}
