// Package types contains shared types used across the scenario-acceptor harness.
package types

import "slices"

// TestKind represents the kind of a test unit
type TestKind string

// String implements the Stringer interface for TestKind
func (k TestKind) String() string {
	return string(k)
}

// TestKind enum values
const (
	KindAPI   TestKind = "api"
	KindUI    TestKind = "ui"
	KindOther TestKind = "other"
)

// IsValid reports whether the kind is one of the known enum values
func (k TestKind) IsValid() bool {
	switch k {
	case KindAPI, KindUI, KindOther:
		return true
	}
	return false
}

// TestUnit is the smallest independently executable test scenario.
// Units are enumerated by an external discovery component and are
// immutable once handed to the harness.
type TestUnit struct {
	ID   string   `yaml:"id"`
	Kind TestKind `yaml:"kind"`
	Tags []string `yaml:"tags,omitempty"`
}

// HasTag reports whether the unit carries the given tag
func (u TestUnit) HasTag(tag string) bool {
	return slices.Contains(u.Tags, tag)
}

// GetName returns a display name for the unit
func (u TestUnit) GetName() string {
	return u.ID
}
