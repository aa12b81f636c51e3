package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "SCENARIO_ACCEPTOR"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Manifest = &cli.StringFlag{
		Name:     "manifest",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("MANIFEST"),
		Usage:    "Path to the scenario manifest file (eg. 'scenarios.yaml')",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   ".",
		EnvVars: prefixEnvVars("WORKDIR"),
		Usage:   "Working directory for scenario runner invocations",
	}
	ScenarioRunner = &cli.StringFlag{
		Name:    "scenario-runner",
		Value:   "scenario-runner",
		EnvVars: prefixEnvVars("SCENARIO_RUNNER"),
		Usage:   "Path to the external scenario runner binary invoked per unit",
	}
	Workers = &cli.IntFlag{
		Name:    "workers",
		Value:   0,
		EnvVars: prefixEnvVars("WORKERS"),
		Usage:   "Number of isolated execution contexts (0 = auto-determine)",
	}
	GroupTimeout = &cli.DurationFlag{
		Name:    "group-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("GROUP_TIMEOUT"),
		Usage:   "Wall-clock budget per test group (eg. '10m')",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store run logs and the history file",
	}
	HistoryFile = &cli.StringFlag{
		Name:    "history-file",
		Value:   "",
		EnvVars: prefixEnvVars("HISTORY_FILE"),
		Usage:   "Path to the execution history file (defaults to <logdir>/history.jsonl)",
	}
	MaxAttempts = &cli.IntFlag{
		Name:    "max-attempts",
		Value:   3,
		EnvVars: prefixEnvVars("MAX_ATTEMPTS"),
		Usage:   "Default maximum attempts per unit",
	}
	RetryDelay = &cli.DurationFlag{
		Name:    "retry-delay",
		Value:   0,
		EnvVars: prefixEnvVars("RETRY_DELAY"),
		Usage:   "Default delay between attempts",
	}
	ExponentialBackoff = &cli.BoolFlag{
		Name:    "exponential-backoff",
		Value:   true,
		EnvVars: prefixEnvVars("EXPONENTIAL_BACKOFF"),
		Usage:   "Grow the retry delay exponentially between attempts",
	}
	FlakinessThreshold = &cli.Float64Flag{
		Name:    "flakiness-threshold",
		Value:   0,
		EnvVars: prefixEnvVars("FLAKINESS_THRESHOLD"),
		Usage:   "Instability ratio above which a unit is classified flaky (0 = default)",
	}
	FlakinessWindow = &cli.IntFlag{
		Name:    "flakiness-window",
		Value:   0,
		EnvVars: prefixEnvVars("FLAKINESS_WINDOW"),
		Usage:   "Number of recent runs considered by the flakiness analyzer (0 = default)",
	}
)

var requiredFlags = []cli.Flag{
	Manifest,
}

var optionalFlags = []cli.Flag{
	WorkDir,
	ScenarioRunner,
	Workers,
	GroupTimeout,
	RunInterval,
	LogDir,
	HistoryFile,
	MaxAttempts,
	RetryDelay,
	ExponentialBackoff,
	FlakinessThreshold,
	FlakinessWindow,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

// CheckRequired verifies that every required flag is set
func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
