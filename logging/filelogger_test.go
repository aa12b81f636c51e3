package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-infra/scenario-acceptor/runner"
	"github.com/qa-infra/scenario-acceptor/types"
)

func sampleResult() *runner.RunResult {
	return &runner.RunResult{
		RunID:    "run-abc",
		Status:   types.StatusFailed,
		Duration: 3 * time.Second,
		Groups: map[string]*runner.GroupResult{
			"api": {
				ID:       "api",
				Strategy: "api",
				Status:   types.StatusFailed,
				Results: []types.ExecutionResult{
					{
						UnitID:       "create-order",
						GroupID:      "api",
						Status:       types.StatusPassed,
						AttemptsUsed: 1,
					},
					{
						UnitID:       "list/orders",
						GroupID:      "api",
						Status:       types.StatusFailed,
						AttemptsUsed: 2,
						Attempts: []types.Attempt{
							{Number: 1, Status: types.StatusFailed, Failure: "\x1b[31mconnection refused\x1b[0m"},
							{Number: 2, Status: types.StatusFailed, Failure: "connection refused"},
						},
					},
				},
			},
		},
		Stats: runner.ResultStats{Total: 2, Passed: 1, Failed: 1},
	}
}

func TestNewFileLoggerValidation(t *testing.T) {
	_, err := NewFileLogger("", "run-1")
	require.Error(t, err)

	_, err = NewFileLogger(t.TempDir(), "")
	require.Error(t, err)
}

func TestNewFileLoggerCreatesRunDirectory(t *testing.T) {
	base := t.TempDir()
	l, err := NewFileLogger(base, "run-xyz")
	require.NoError(t, err)

	assert.Equal(t, "run-xyz", l.GetRunID())
	assert.Equal(t, filepath.Join(base, "testrun-run-xyz"), l.GetDirectory())
	assert.DirExists(t, filepath.Join(l.GetDirectory(), FailedDirName))
}

func TestLogRunWritesSummaryAndFailures(t *testing.T) {
	base := t.TempDir()
	l, err := NewFileLogger(base, "run-abc")
	require.NoError(t, err)

	require.NoError(t, l.LogRun(sampleResult()))

	summary, err := os.ReadFile(filepath.Join(l.GetDirectory(), SummaryFilename))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "run: run-abc")
	assert.Contains(t, string(summary), "status: failed")
	assert.Contains(t, string(summary), "create-order")

	// Failure detail under failed/ with a filesystem-safe name
	detail, err := os.ReadFile(filepath.Join(l.GetDirectory(), FailedDirName, "list_orders.log"))
	require.NoError(t, err)
	assert.Contains(t, string(detail), "attempt 1: failed")
	assert.Contains(t, string(detail), "connection refused")
	assert.NotContains(t, string(detail), "\x1b[", "escape codes should be stripped")

	// Passing units get no detail file
	assert.NoFileExists(t, filepath.Join(l.GetDirectory(), FailedDirName, "create-order.log"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e", sanitizeFilename("a/b\\c:d e"))
}
