package acceptor

import (
	"github.com/qa-infra/scenario-acceptor/history"
	"github.com/qa-infra/scenario-acceptor/metrics"
	"github.com/qa-infra/scenario-acceptor/retry"
	"github.com/qa-infra/scenario-acceptor/runner"
)

// MetricsReporter is responsible for reporting metrics from run results.
type MetricsReporter interface {
	ReportResults(runID string, result *runner.RunResult)
	ReportFlakiness(scores []history.FlakinessScore)
}

// DefaultMetricsReporter implements the MetricsReporter interface.
type DefaultMetricsReporter struct {
	stats *retry.Stats
}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter.
func NewDefaultMetricsReporter(stats *retry.Stats) *DefaultMetricsReporter {
	return &DefaultMetricsReporter{stats: stats}
}

// ReportResults reports the run results to metrics systems.
func (r *DefaultMetricsReporter) ReportResults(runID string, result *runner.RunResult) {
	metrics.RecordRun(
		runID,
		result.Status,
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Total-result.Stats.Passed,
		result.Duration,
	)

	if r.stats != nil {
		for unitID, unitStats := range r.stats.Snapshot() {
			metrics.RecordRetryAttempts(unitID, unitStats.TotalAttempts)
		}
	}
}

// ReportFlakiness publishes analyzer classifications to metrics systems.
func (r *DefaultMetricsReporter) ReportFlakiness(scores []history.FlakinessScore) {
	for _, score := range scores {
		metrics.RecordFlakiness(score.TestID, string(score.Classification), score.InstabilityRatio)
	}
}
