package acceptor

import (
	"errors"
	"fmt"

	"github.com/qa-infra/scenario-acceptor/exitcodes"
	"github.com/qa-infra/scenario-acceptor/types"
)

// RuntimeError is an operational failure: bad configuration, an
// unreadable manifest, a broken history file. It maps to exit code 2 so
// callers can tell infrastructure problems from test outcomes.
type RuntimeError struct {
	Err error
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ExitCode implements the cli.ExitCoder interface
func (e *RuntimeError) ExitCode() int {
	return exitcodes.RuntimeErr
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports a run that finished with non-passing units.
// The harness itself worked; the scenarios did not. Maps to exit code 1.
type TestFailureError struct {
	NonPassed int
	Total     int
	Status    types.Status
}

func NewTestFailureError(nonPassed, total int, status types.Status) *TestFailureError {
	return &TestFailureError{NonPassed: nonPassed, Total: total, Status: status}
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %d of %d units did not pass (status %s)", e.NonPassed, e.Total, e.Status)
}

// ExitCode implements the cli.ExitCoder interface
func (e *TestFailureError) ExitCode() int {
	return exitcodes.TestFailure
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
