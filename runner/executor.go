package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/qa-infra/scenario-acceptor/types"
)

const (
	// DefaultScenarioRunner is the binary invoked per unit when no
	// explicit runner is configured
	DefaultScenarioRunner = "scenario-runner"

	// maxFailureDetailBytes bounds the stderr captured into a failure
	// summary
	maxFailureDetailBytes = 4096
)

// CommandExecutor runs each test unit as an invocation of an external
// scenario-runner binary. It adapts the subprocess exit status into the
// Outcome the retry wrapper consumes: exit 0 passes, exit 1 is a
// scenario failure, anything else is an infrastructure error.
type CommandExecutor struct {
	binary  string
	workDir string
	env     []string
}

// NewCommandExecutor creates a subprocess-based scenario executor
func NewCommandExecutor(binary, workDir string, env []string) (*CommandExecutor, error) {
	if binary == "" {
		binary = DefaultScenarioRunner
	}
	if workDir == "" {
		return nil, fmt.Errorf("workDir cannot be empty")
	}
	return &CommandExecutor{
		binary:  binary,
		workDir: workDir,
		env:     env,
	}, nil
}

// Execute implements ExecutorFunc. One call is one invocation; retry
// scheduling stays with the caller.
func (e *CommandExecutor) Execute(ctx context.Context, unit types.TestUnit) types.Outcome {
	cmd := exec.CommandContext(ctx, e.binary, e.buildArgs(unit)...)
	cmd.Dir = e.workDir
	if len(e.env) > 0 {
		cmd.Env = e.env
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	if runErr == nil {
		return types.Outcome{Status: types.StatusPassed, Duration: duration}
	}

	if ctx.Err() != nil {
		status := types.StatusCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			status = types.StatusTimeout
		}
		return types.Outcome{
			Status:   status,
			Duration: duration,
			Failure:  &types.Failure{Message: fmt.Sprintf("scenario interrupted: %v", ctx.Err())},
		}
	}

	detail := failureDetail(&stderr)

	exitErr := &exec.ExitError{}
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
		if detail == "" {
			detail = "scenario assertions failed"
		}
		return types.Outcome{
			Status:   types.StatusFailed,
			Duration: duration,
			Failure:  &types.Failure{Message: detail},
		}
	}

	// Non-test exit codes and spawn failures are environment problems,
	// not scenario failures
	msg := fmt.Sprintf("scenario runner failed: %v", runErr)
	if detail != "" {
		msg = fmt.Sprintf("%s\nstderr: %s", msg, detail)
	}
	return types.Outcome{
		Status:   types.StatusError,
		Duration: duration,
		Failure:  &types.Failure{Message: msg},
	}
}

func (e *CommandExecutor) buildArgs(unit types.TestUnit) []string {
	args := []string{"run", "--scenario", unit.ID, "--kind", unit.Kind.String()}
	for _, tag := range unit.Tags {
		args = append(args, "--tag", tag)
	}
	return args
}

func failureDetail(stderr *bytes.Buffer) string {
	detail := strings.TrimSpace(stderr.String())
	if len(detail) > maxFailureDetailBytes {
		detail = detail[len(detail)-maxFailureDetailBytes:]
	}
	return detail
}
