package retry

import "sync"

// UnitStats aggregates retry behavior for one unit across executions
type UnitStats struct {
	Executions    int
	TotalAttempts int
	Successes     int
	Failures      int
}

// Stats collects per-unit retry statistics across a run. It is safe for
// concurrent use by multiple execution contexts.
type Stats struct {
	mu      sync.Mutex
	perUnit map[string]*UnitStats
}

// NewStats creates an empty statistics collector
func NewStats() *Stats {
	return &Stats{perUnit: make(map[string]*UnitStats)}
}

// Record folds one execution result into the statistics
func (s *Stats) Record(unitID string, attemptsUsed int, passed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.perUnit[unitID]
	if !ok {
		stats = &UnitStats{}
		s.perUnit[unitID] = stats
	}
	stats.Executions++
	stats.TotalAttempts += attemptsUsed
	if passed {
		stats.Successes++
	} else {
		stats.Failures++
	}
}

// Snapshot returns a copy of the accumulated statistics
func (s *Stats) Snapshot() map[string]UnitStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]UnitStats, len(s.perUnit))
	for id, stats := range s.perUnit {
		out[id] = *stats
	}
	return out
}
