package acceptor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qa-infra/scenario-acceptor/exitcodes"
	"github.com/qa-infra/scenario-acceptor/types"
)

func TestRuntimeErrorWrapping(t *testing.T) {
	inner := errors.New("manifest unreadable")
	err := NewRuntimeError(inner)

	assert.True(t, IsRuntimeError(err))
	assert.False(t, IsTestFailureError(err))
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "runtime error")
	assert.Equal(t, exitcodes.RuntimeErr, err.ExitCode())

	wrapped := fmt.Errorf("starting service: %w", err)
	assert.True(t, IsRuntimeError(wrapped), "detection should see through wrapping")
}

func TestTestFailureError(t *testing.T) {
	err := NewTestFailureError(2, 5, types.StatusFailed)

	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Contains(t, err.Error(), "2 of 5 units did not pass")
	assert.Equal(t, exitcodes.TestFailure, err.ExitCode())

	wrapped := fmt.Errorf("run finished: %w", err)
	assert.True(t, IsTestFailureError(wrapped))
}

func TestErrorChecksOnNil(t *testing.T) {
	assert.False(t, IsRuntimeError(nil))
	assert.False(t, IsTestFailureError(nil))
	assert.False(t, IsRuntimeError(errors.New("plain")))
	assert.False(t, IsTestFailureError(errors.New("plain")))
}
