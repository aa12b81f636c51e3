package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/qa-infra/scenario-acceptor/types"
)

// Registry holds the set of discovered test units and their
// configuration for a run. Units are supplied by an external discovery
// component via the scenario manifest and are immutable once loaded.
type Registry struct {
	config  Config
	units   []types.TestUnit
	groups  []types.GroupConfig
	presets map[types.TestKind]PolicyPreset
	mu      sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log          log.Logger
	ManifestFile string
}

// PolicyPreset is the declarative part of a retry policy, keyed by unit
// kind in the manifest. The retryable predicate is supplied in code.
type PolicyPreset struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	Delay              time.Duration `yaml:"delay"`
	ExponentialBackoff bool          `yaml:"exponential_backoff"`
}

// manifest is the on-disk scenario manifest format
type manifest struct {
	Units    []types.TestUnit                `yaml:"units"`
	Groups   []types.GroupConfig             `yaml:"groups,omitempty"`
	Policies map[types.TestKind]PolicyPreset `yaml:"policies,omitempty"`
	Metadata struct {
		Timeouts map[string]time.Duration `yaml:"timeouts,omitempty"`
	} `yaml:"metadata,omitempty"`
}

// NewRegistry creates a new registry instance from a scenario manifest
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.ManifestFile == "" {
		return nil, fmt.Errorf("scenario manifest file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config:  cfg,
		presets: make(map[types.TestKind]PolicyPreset),
	}

	if err := r.loadManifest(cfg.ManifestFile); err != nil {
		return nil, fmt.Errorf("failed to load scenario manifest: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(units)", len(r.units), "len(groups)", len(r.groups))

	return r, nil
}

// loadManifest reads and validates the scenario manifest
func (r *Registry) loadManifest(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading manifest %q: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing manifest %q: %w", path, err)
	}

	seen := make(map[string]bool, len(m.Units))
	for i, unit := range m.Units {
		if unit.ID == "" {
			return fmt.Errorf("unit at index %d has no id", i)
		}
		if seen[unit.ID] {
			return fmt.Errorf("duplicate unit id %q", unit.ID)
		}
		seen[unit.ID] = true

		if unit.Kind == "" {
			m.Units[i].Kind = types.KindOther
		} else if !unit.Kind.IsValid() {
			return fmt.Errorf("unit %q has invalid kind %q", unit.ID, unit.Kind)
		}
	}

	for i, group := range m.Groups {
		if group.Kind == "" && group.Tag == "" {
			return fmt.Errorf("group at index %d selects neither a kind nor a tag", i)
		}
		if group.Kind != "" && !group.Kind.IsValid() {
			return fmt.Errorf("group at index %d has invalid kind %q", i, group.Kind)
		}
	}

	r.units = m.Units
	r.groups = m.Groups
	if m.Policies != nil {
		r.presets = m.Policies
	}
	return nil
}

// Units returns a copy of all discovered units in manifest order
func (r *Registry) Units() []types.TestUnit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	units := make([]types.TestUnit, len(r.units))
	copy(units, r.units)
	return units
}

// UnitsByKind returns the units of the given kind in manifest order
func (r *Registry) UnitsByKind(kind types.TestKind) []types.TestUnit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var units []types.TestUnit
	for _, u := range r.units {
		if u.Kind == kind {
			units = append(units, u)
		}
	}
	return units
}

// UnitsByTag returns the units carrying the given tag in manifest order
func (r *Registry) UnitsByTag(tag string) []types.TestUnit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var units []types.TestUnit
	for _, u := range r.units {
		if u.HasTag(tag) {
			units = append(units, u)
		}
	}
	return units
}

// GroupConfigs returns the group declarations from the manifest
func (r *Registry) GroupConfigs() []types.GroupConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	groups := make([]types.GroupConfig, len(r.groups))
	copy(groups, r.groups)
	return groups
}

// PolicyPreset returns the retry preset configured for a unit kind
func (r *Registry) PolicyPreset(kind types.TestKind) (PolicyPreset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	preset, ok := r.presets[kind]
	return preset, ok
}
