package runner

import (
	"time"

	"github.com/qa-infra/scenario-acceptor/types"
)

// GroupResult captures aggregated results for one group
type GroupResult struct {
	ID          string
	Strategy    string
	Results     []types.ExecutionResult
	Status      types.Status
	Duration    time.Duration
	CrashReason string
	Stats       ResultStats
}

// RunResult captures the complete results of a run across all groups.
// Ordering within a group follows declaration order; across groups there
// is no ordering guarantee.
type RunResult struct {
	RunID    string
	Groups   map[string]*GroupResult
	Status   types.Status
	Duration time.Duration
	Stats    ResultStats
}

// ResultStats tracks unit counts at each level
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Errored   int
	TimedOut  int
	Cancelled int
	StartTime time.Time
	EndTime   time.Time
}

// AllResults returns every execution result across all groups
func (r *RunResult) AllResults() []types.ExecutionResult {
	var all []types.ExecutionResult
	for _, group := range r.Groups {
		all = append(all, group.Results...)
	}
	return all
}

// newRunResult creates a properly initialized empty run result
func newRunResult(runID string, start time.Time) *RunResult {
	return &RunResult{
		RunID:  runID,
		Groups: make(map[string]*GroupResult),
		Status: types.StatusPassed,
		Stats:  ResultStats{StartTime: start},
	}
}

// addGroupOutcome folds one group's outcome into the run result
func addGroupOutcome(result *RunResult, outcome groupOutcome) {
	group := &GroupResult{
		ID:          outcome.Group.ID,
		Strategy:    outcome.Group.Strategy,
		Results:     outcome.Results,
		CrashReason: outcome.CrashReason,
		Stats:       ResultStats{StartTime: result.Stats.StartTime},
	}

	for _, res := range outcome.Results {
		group.Stats.count(res.Status)
		result.Stats.count(res.Status)
		group.Duration += res.Duration
	}
	group.Status = determineStatus(group.Stats)
	group.Stats.EndTime = time.Now()

	result.Groups[group.ID] = group
}

// finalizeRunResult applies final status and timing to the run
func finalizeRunResult(result *RunResult, start time.Time) {
	result.Duration = time.Since(start)
	result.Status = determineStatus(result.Stats)
	result.Stats.EndTime = time.Now()
}

func (s *ResultStats) count(status types.Status) {
	s.Total++
	switch status {
	case types.StatusPassed:
		s.Passed++
	case types.StatusFailed:
		s.Failed++
	case types.StatusError:
		s.Errored++
	case types.StatusTimeout:
		s.TimedOut++
	case types.StatusCancelled:
		s.Cancelled++
	}
}

// determineStatus rolls unit counts up to a single status. The worst
// outcome wins; an empty selection counts as passed.
func determineStatus(stats ResultStats) types.Status {
	switch {
	case stats.Errored > 0:
		return types.StatusError
	case stats.TimedOut > 0:
		return types.StatusTimeout
	case stats.Cancelled > 0:
		return types.StatusCancelled
	case stats.Failed > 0:
		return types.StatusFailed
	default:
		return types.StatusPassed
	}
}
