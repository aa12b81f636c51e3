package acceptor

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/qa-infra/scenario-acceptor/flags"
)

// Config holds the application configuration
type Config struct {
	Manifest           string        // Path to the scenario manifest
	WorkDir            string        // Working directory for scenario runner invocations
	ScenarioRunner     string        // External scenario runner binary
	Workers            int           // Worker pool size (0 = auto-determine)
	GroupTimeout       time.Duration // Wall-clock budget per group
	RunInterval        time.Duration // Interval between runs
	RunOnce            bool          // Indicates if the service should exit after one run
	LogDir             string        // Directory to store run logs
	HistoryFile        string        // Path of the execution history file
	MaxAttempts        int           // Default maximum attempts per unit
	RetryDelay         time.Duration // Default delay between attempts
	ExponentialBackoff bool          // Grow the retry delay exponentially
	FlakinessThreshold float64       // Analyzer instability threshold (0 = default)
	FlakinessWindow    int           // Analyzer sample window (0 = default)
	Log                log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	manifest := ctx.String(flags.Manifest.Name)
	if manifest == "" {
		return nil, errors.New("scenario manifest is required")
	}
	absManifest, err := filepath.Abs(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", manifest, err)
	}

	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for workdir: %w", err)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	historyFile := ctx.String(flags.HistoryFile.Name)
	if historyFile == "" {
		historyFile = filepath.Join(logDir, "history.jsonl")
	} else {
		historyFile, err = filepath.Abs(historyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for history file '%s': %w", historyFile, err)
		}
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		Manifest:           absManifest,
		WorkDir:            workDir,
		ScenarioRunner:     ctx.String(flags.ScenarioRunner.Name),
		Workers:            ctx.Int(flags.Workers.Name),
		GroupTimeout:       ctx.Duration(flags.GroupTimeout.Name),
		RunInterval:        runInterval,
		RunOnce:            runInterval == 0,
		LogDir:             logDir,
		HistoryFile:        historyFile,
		MaxAttempts:        ctx.Int(flags.MaxAttempts.Name),
		RetryDelay:         ctx.Duration(flags.RetryDelay.Name),
		ExponentialBackoff: ctx.Bool(flags.ExponentialBackoff.Name),
		FlakinessThreshold: ctx.Float64(flags.FlakinessThreshold.Name),
		FlakinessWindow:    ctx.Int(flags.FlakinessWindow.Name),
		Log:                logger,
	}, nil
}
