// Package logging handles writing per-run execution output to files.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/qa-infra/scenario-acceptor/runner"
	"github.com/qa-infra/scenario-acceptor/types"
)

const (
	SummaryFilename    = "summary.log"
	FailedDirName      = "failed"
	RunDirectoryPrefix = "testrun-" // Standardized prefix for run directories
)

// FileLogger writes a run's results under a per-run directory:
// <baseDir>/testrun-<runID>/summary.log plus one detail file per
// non-passing unit under failed/.
type FileLogger struct {
	baseDir string
	logDir  string
	runID   string
	mu      sync.Mutex
}

// NewFileLogger creates a FileLogger and its run directory
func NewFileLogger(baseDir, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	for _, dir := range []string{baseDir, logDir, filepath.Join(logDir, FailedDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		baseDir: baseDir,
		logDir:  logDir,
		runID:   runID,
	}, nil
}

// GetRunID returns the run identifier this logger writes under
func (l *FileLogger) GetRunID() string {
	return l.runID
}

// GetDirectory returns the per-run log directory
func (l *FileLogger) GetDirectory() string {
	return l.logDir
}

// LogRun writes the run summary and one failure detail file per
// non-passing unit
func (l *FileLogger) LogRun(result *runner.RunResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeSummary(result); err != nil {
		return err
	}

	for _, group := range result.Groups {
		for _, res := range group.Results {
			if res.Status == types.StatusPassed {
				continue
			}
			if err := l.writeFailureDetail(res); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *FileLogger) writeSummary(result *runner.RunResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run: %s\n", result.RunID)
	fmt.Fprintf(&b, "status: %s\n", result.Status)
	fmt.Fprintf(&b, "duration: %s\n", result.Duration)
	fmt.Fprintf(&b, "total: %d passed: %d failed: %d errored: %d timed_out: %d cancelled: %d\n",
		result.Stats.Total, result.Stats.Passed, result.Stats.Failed,
		result.Stats.Errored, result.Stats.TimedOut, result.Stats.Cancelled)
	b.WriteString("\n")

	for _, group := range result.Groups {
		fmt.Fprintf(&b, "group %s [%s]: %s (%d units)\n", group.ID, group.Strategy, group.Status, len(group.Results))
		if group.CrashReason != "" {
			fmt.Fprintf(&b, "  crash: %s\n", stripansi.Strip(group.CrashReason))
		}
		for _, res := range group.Results {
			fmt.Fprintf(&b, "  %-40s %s attempts=%d duration=%s\n", res.UnitID, res.Status, res.AttemptsUsed, res.Duration)
		}
	}

	path := filepath.Join(l.logDir, SummaryFilename)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func (l *FileLogger) writeFailureDetail(res types.ExecutionResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "unit: %s\ngroup: %s\nstatus: %s\nattempts: %d\n\n", res.UnitID, res.GroupID, res.Status, res.AttemptsUsed)
	for _, attempt := range res.Attempts {
		fmt.Fprintf(&b, "attempt %d: %s (%s)\n", attempt.Number, attempt.Status, attempt.Duration)
		if attempt.Failure != "" {
			fmt.Fprintf(&b, "%s\n\n", stripansi.Strip(attempt.Failure))
		}
	}

	path := filepath.Join(l.logDir, FailedDirName, sanitizeFilename(res.UnitID)+".log")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write failure detail for %s: %w", res.UnitID, err)
	}
	return nil
}

// sanitizeFilename keeps unit ids filesystem-safe
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_")
	return replacer.Replace(name)
}
