package runner

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/qa-infra/scenario-acceptor/retry"
	"github.com/qa-infra/scenario-acceptor/types"
)

const (
	// DefaultGroupTimeout bounds a single group's wall-clock budget
	DefaultGroupTimeout = 30 * time.Minute

	// MaxReasonableWorkers caps auto-determined pool size to avoid
	// resource exhaustion
	MaxReasonableWorkers = 32
)

// ExecutorFunc is the scenario execution callback supplied by the
// external execution engine. It runs one invocation of a unit and must
// honor context cancellation.
type ExecutorFunc func(ctx context.Context, unit types.TestUnit) types.Outcome

// PolicySelector resolves the retry policy applicable to a unit
type PolicySelector interface {
	PolicyFor(unit types.TestUnit) retry.Policy
}

// GroupRunner executes ordered test groups and aggregates their results
type GroupRunner interface {
	Run(ctx context.Context, groups []types.TestGroup) (*RunResult, error)
}

var _ GroupRunner = (*Runner)(nil)

// Runner implements GroupRunner with a bounded pool of isolated
// execution contexts consuming groups in FIFO declaration order.
type Runner struct {
	workers      int
	groupTimeout time.Duration
	executor     ExecutorFunc
	policies     PolicySelector
	stats        *retry.Stats
	log          log.Logger
	tracer       trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Workers      int           // pool size W; 0 auto-determines from CPU count
	GroupTimeout time.Duration // wall-clock budget per group; 0 uses the default
	Executor     ExecutorFunc  // required scenario execution callback
	Policies     PolicySelector
	RetryStats   *retry.Stats // optional retry statistics collector
	Log          log.Logger
}

// NewRunner creates a new runner instance
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Policies == nil {
		cfg.Policies = StaticPolicy{}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = min(runtime.NumCPU(), 4)
		cfg.Log.Debug("Auto-determined worker pool size", "workers", workers)
	}
	if workers > MaxReasonableWorkers {
		cfg.Log.Warn("Very high worker count requested", "workers", workers,
			"recommendation", "Consider using lower values to avoid resource exhaustion")
	}

	groupTimeout := cfg.GroupTimeout
	if groupTimeout < 0 {
		cfg.Log.Warn("Negative group timeout, using default", "timeout", groupTimeout, "default", DefaultGroupTimeout)
		groupTimeout = DefaultGroupTimeout
	}
	if groupTimeout == 0 {
		groupTimeout = DefaultGroupTimeout
	}

	return &Runner{
		workers:      workers,
		groupTimeout: groupTimeout,
		executor:     cfg.Executor,
		policies:     cfg.Policies,
		stats:        cfg.RetryStats,
		log:          cfg.Log,
		tracer:       otel.Tracer("group runner"),
	}, nil
}

// Run executes the ordered groups under the worker pool and returns the
// complete set of execution results, each tagged with its originating
// group. Cancellation terminates outstanding contexts, marks in-flight
// and queued units cancelled, and still returns the partial results.
func (r *Runner) Run(ctx context.Context, groups []types.TestGroup) (*RunResult, error) {
	runID := uuid.New().String()
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "test run")
	defer span.End()

	result := newRunResult(runID, start)
	if len(groups) == 0 {
		r.log.Debug("No groups to execute", "run_id", runID)
		finalizeRunResult(result, start)
		return result, nil
	}

	total := 0
	for _, g := range groups {
		total += g.Size()
	}
	r.log.Info("Starting parallel group execution",
		"run_id", runID, "groups", len(groups), "units", total, "workers", r.workers)

	outcomes := r.executeGroups(ctx, runID, groups)
	for outcome := range outcomes {
		addGroupOutcome(result, outcome)
	}

	finalizeRunResult(result, start)

	r.log.Info("Group execution completed",
		"run_id", runID,
		"status", result.Status,
		"duration", result.Duration,
		"passed", result.Stats.Passed,
		"failed", result.Stats.Failed,
		"errored", result.Stats.Errored,
		"timedOut", result.Stats.TimedOut,
		"cancelled", result.Stats.Cancelled)

	return result, nil
}
