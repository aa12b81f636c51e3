package metrics

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/qa-infra/scenario-acceptor/types"
)

const (
	MetricsNamespace = "acceptor"
)

var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	unitResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "unit_results_total",
		Help:      "Count of unit execution results",
	}, []string{
		"run_id",
		"group",
		"unit",
		"status",
	})

	retryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "retry_attempts_total",
		Help:      "Total attempts consumed per unit",
	}, []string{
		"unit",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of the latest run",
	}, []string{
		"run_id",
		"result",
	})

	runDurationSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the latest run",
	}, []string{
		"run_id",
	})

	flakyClassification = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "flaky_classification",
		Help:      "Instability ratio of tests classified by the analyzer",
	}, []string{
		"unit",
		"classification",
	})
)

// RecordError increments the error counter for a named error
func RecordError(name string) {
	errorsTotal.WithLabelValues(name).Inc()
}

// RecordErrorDetails counts an error under its stable name; the message
// goes to the log, not into a label, to keep cardinality bounded
func RecordErrorDetails(name string, err error) {
	if err == nil {
		return
	}
	log.Error("Recorded error", "name", name, "error", err)
	RecordError(name)
}

// RecordUnitResult records the final status of one unit execution
func RecordUnitResult(runID, group, unit string, status types.Status) {
	unitResultsTotal.WithLabelValues(runID, group, unit, status.String()).Inc()
}

// RecordRetryAttempts adds the attempts consumed by one unit execution
func RecordRetryAttempts(unit string, attempts int) {
	if attempts <= 0 {
		return
	}
	retryAttemptsTotal.WithLabelValues(unit).Add(float64(attempts))
}

// RecordRun records the aggregate outcome of a run
func RecordRun(runID string, status types.Status, total, passed, failed int, duration time.Duration) {
	runResults.WithLabelValues(runID, "total").Set(float64(total))
	runResults.WithLabelValues(runID, "passed").Set(float64(passed))
	runResults.WithLabelValues(runID, "failed").Set(float64(failed))
	runResults.WithLabelValues(runID, status.String()).Set(1)
	runDurationSeconds.WithLabelValues(runID).Set(duration.Seconds())
}

// RecordFlakiness publishes an analyzer classification for a unit
func RecordFlakiness(unit, classification string, ratio float64) {
	flakyClassification.WithLabelValues(unit, classification).Set(ratio)
}
