// Package acceptor orchestrates scenario acceptance runs: it loads the
// scenario manifest, partitions units into groups, schedules the groups
// across the parallel runner, persists outcomes to the history store and
// reports stability classifications.
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/qa-infra/scenario-acceptor/history"
	"github.com/qa-infra/scenario-acceptor/logging"
	"github.com/qa-infra/scenario-acceptor/registry"
	"github.com/qa-infra/scenario-acceptor/retry"
	"github.com/qa-infra/scenario-acceptor/runner"
	"github.com/qa-infra/scenario-acceptor/types"
)

// Acceptor runs scenario acceptance tests once or on an interval.
type Acceptor struct {
	config   *Config
	version  string
	registry *registry.Registry
	runner   runner.GroupRunner
	store    *history.Store
	analyzer *history.Analyzer
	stats    *retry.Stats
	reporter MetricsReporter

	mu     sync.Mutex
	result *runner.RunResult

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New wires the registry, runner, store and analyzer from config. The
// scenario execution callback comes from the embedding engine; every
// component instance is explicit and passed by reference, there is no
// process-wide shared state beyond the metrics registry.
func New(config *Config, version string, executor runner.ExecutorFunc) (*Acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if executor == nil {
		return nil, errors.New("executor is required")
	}

	config.Log.Debug("Creating acceptor with config",
		"manifest", config.Manifest,
		"workers", config.Workers,
		"groupTimeout", config.GroupTimeout,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	reg, err := registry.NewRegistry(registry.Config{
		Log:          config.Log,
		ManifestFile: config.Manifest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	store, err := history.NewStore(config.HistoryFile, config.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	analyzer, err := history.NewAnalyzer(store, config.FlakinessThreshold, config.FlakinessWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	stats := retry.NewStats()
	groupRunner, err := runner.NewRunner(runner.Config{
		Workers:      config.Workers,
		GroupTimeout: config.GroupTimeout,
		Executor:     executor,
		Policies:     buildPolicies(config, reg),
		RetryStats:   stats,
		Log:          config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return &Acceptor{
		config:   config,
		version:  version,
		registry: reg,
		runner:   groupRunner,
		store:    store,
		analyzer: analyzer,
		stats:    stats,
		reporter: NewDefaultMetricsReporter(stats),
		done:     make(chan struct{}),
	}, nil
}

// Start runs the acceptance tests, immediately and then periodically at
// the configured interval. In run-once mode the returned error reflects
// the run outcome: a TestFailureError when any unit did not pass.
func (a *Acceptor) Start(ctx context.Context) error {
	a.running.Store(true)

	if a.config.RunOnce {
		a.config.Log.Info("Starting scenario-acceptor in run-once mode", "version", a.version)
	} else {
		a.config.Log.Info("Starting scenario-acceptor in continuous mode", "version", a.version, "interval", a.config.RunInterval)
	}

	if err := a.runTests(ctx); err != nil {
		return NewRuntimeError(fmt.Errorf("running tests: %w", err))
	}

	if a.config.RunOnce {
		a.running.Store(false)
		return a.resultError()
	}

	a.wg.Add(1)
	go a.loop(ctx)
	return nil
}

// Stop terminates the periodic loop and waits for an in-flight run
func (a *Acceptor) Stop(ctx context.Context) error {
	if !a.running.CompareAndSwap(true, false) {
		return nil
	}
	close(a.done)

	stopped := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result returns the most recent run result
func (a *Acceptor) Result() *runner.RunResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

func (a *Acceptor) loop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.runTests(ctx); err != nil {
				a.config.Log.Error("Periodic run failed", "error", err)
			}
		case <-a.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runTests executes one complete run: group construction, parallel
// execution, the single batched history write, file logging and
// reporting. Cancellation mid-run still persists the partial results.
func (a *Acceptor) runTests(ctx context.Context) error {
	groups := a.buildGroups()

	result, err := a.runner.Run(ctx, groups)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.result = result
	a.mu.Unlock()

	if err := a.store.AppendRun(result.AllResults()); err != nil {
		return fmt.Errorf("appending run to history: %w", err)
	}

	fileLogger, err := logging.NewFileLogger(a.config.LogDir, result.RunID)
	if err != nil {
		return fmt.Errorf("creating file logger: %w", err)
	}
	if err := fileLogger.LogRun(result); err != nil {
		return fmt.Errorf("writing run logs: %w", err)
	}

	a.reporter.ReportResults(result.RunID, result)

	scores := a.analyzer.AnalyzeAll()
	a.reporter.ReportFlakiness(scores)

	a.printSummary(result, scores)
	a.config.Log.Info("Run complete",
		"run_id", result.RunID,
		"status", result.Status,
		"logDir", fileLogger.GetDirectory())

	return nil
}

// buildGroups partitions the discovered units. Manifest group
// declarations take precedence; without them the conventional default
// partition is used.
func (a *Acceptor) buildGroups() []types.TestGroup {
	builder := registry.NewGroupBuilder(a.registry)

	declared := a.registry.GroupConfigs()
	if len(declared) > 0 {
		for _, cfg := range declared {
			builder.AddGroup(cfg)
		}
		return builder.Build()
	}

	return builder.
		AddSmoke().
		AddKind(types.KindAPI).
		AddKind(types.KindUI).
		AddRegression().
		Build()
}

// resultError translates the latest run result into the typed error the
// exit-code handler understands. Whether a run "fails" is the reporting
// layer's call; any non-passed unit makes the run non-zero.
func (a *Acceptor) resultError() error {
	result := a.Result()
	if result == nil {
		return NewRuntimeError(errors.New("no result produced"))
	}
	if result.Status == types.StatusPassed {
		return nil
	}
	return NewTestFailureError(result.Stats.Total-result.Stats.Passed, result.Stats.Total, result.Status)
}

// buildPolicies assembles the retry policy selector: manifest presets
// per kind when declared, CLI defaults otherwise. The transient
// predicate follows the conventional split: API failures retry only on
// network-ish errors, UI failures retry on anything.
func buildPolicies(config *Config, reg *registry.Registry) runner.PolicySelector {
	defaultPolicy := retry.Policy{
		MaxAttempts:        config.MaxAttempts,
		Delay:              config.RetryDelay,
		ExponentialBackoff: config.ExponentialBackoff,
	}

	perKind := make(map[types.TestKind]retry.Policy)
	for _, kind := range []types.TestKind{types.KindAPI, types.KindUI, types.KindOther} {
		preset, ok := reg.PolicyPreset(kind)
		if !ok {
			continue
		}
		policy := retry.Policy{
			MaxAttempts:        preset.MaxAttempts,
			Delay:              preset.Delay,
			ExponentialBackoff: preset.ExponentialBackoff,
		}
		if kind == types.KindAPI {
			policy.Retryable = TransientFailure
		}
		perKind[kind] = policy
	}

	if _, ok := perKind[types.KindAPI]; !ok {
		apiPolicy := defaultPolicy
		apiPolicy.Retryable = TransientFailure
		perKind[types.KindAPI] = apiPolicy
	}

	return runner.KindPolicies{
		Default: defaultPolicy,
		PerKind: perKind,
	}
}

// TransientFailure is the default retryable predicate for API units: it
// matches network-shaped failures and leaves assertion failures
// permanent.
func TransientFailure(f types.Failure) bool {
	msg := strings.ToLower(f.Message)
	for _, marker := range []string{
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"temporarily unavailable",
		"too many requests",
		"service unavailable",
		"eof",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
