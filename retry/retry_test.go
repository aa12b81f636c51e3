package retry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-infra/scenario-acceptor/types"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

// alwaysFail returns an invocation that fails every time with the given
// message and counts how often it was called.
func alwaysFail(calls *int, message string) Invocation {
	return func(ctx context.Context) types.Outcome {
		*calls++
		return types.Outcome{
			Status:  types.StatusFailed,
			Failure: &types.Failure{Message: message},
		}
	}
}

func TestRunExhaustsAttemptsExactly(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3}

	result := Run(context.Background(), "login-check", alwaysFail(&calls, "assertion failed"), policy, testLogger())

	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Equal(t, 3, calls, "invocation should run exactly MaxAttempts times")
	assert.Equal(t, 3, result.AttemptsUsed)
	require.Len(t, result.Attempts, 3)
	for i, attempt := range result.Attempts {
		assert.Equal(t, i+1, attempt.Number, "attempts should be numbered in order")
		assert.Equal(t, types.StatusFailed, attempt.Status)
		assert.Equal(t, "assertion failed", attempt.Failure)
	}
}

func TestRunStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	invoke := func(ctx context.Context) types.Outcome {
		calls++
		if calls < 3 {
			return types.Outcome{
				Status:  types.StatusFailed,
				Failure: &types.Failure{Message: "connection refused"},
			}
		}
		return types.Outcome{Status: types.StatusPassed}
	}

	result := Run(context.Background(), "payment-flow", invoke, Policy{MaxAttempts: 5}, testLogger())

	assert.Equal(t, types.StatusPassed, result.Status)
	assert.Equal(t, 3, calls, "success should stop further attempts")
	assert.Equal(t, 3, result.AttemptsUsed)
	assert.Equal(t, "", result.LastFailure())
}

func TestRunPassesOnFirstAttempt(t *testing.T) {
	calls := 0
	invoke := func(ctx context.Context) types.Outcome {
		calls++
		return types.Outcome{Status: types.StatusPassed}
	}

	result := Run(context.Background(), "health-check", invoke, Policy{MaxAttempts: 3}, testLogger())

	assert.Equal(t, types.StatusPassed, result.Status)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.AttemptsUsed)
}

func TestRunPermanentFailureShortCircuits(t *testing.T) {
	calls := 0
	policy := Policy{
		MaxAttempts: 5,
		Retryable: func(f types.Failure) bool {
			return false
		},
	}

	result := Run(context.Background(), "schema-check", alwaysFail(&calls, "schema mismatch"), policy, testLogger())

	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Equal(t, 1, calls, "a permanent failure should not be retried")
	assert.Equal(t, 1, result.AttemptsUsed)
	assert.Equal(t, "schema mismatch", result.LastFailure())
}

func TestRunNilPredicateRetriesEverything(t *testing.T) {
	calls := 0
	result := Run(context.Background(), "flaky-unit", alwaysFail(&calls, "whatever"), Policy{MaxAttempts: 4}, testLogger())

	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, result.AttemptsUsed)
	assert.Equal(t, types.StatusFailed, result.Status)
}

func TestRunMixedTransientAndPermanent(t *testing.T) {
	calls := 0
	invoke := func(ctx context.Context) types.Outcome {
		calls++
		message := "timeout while connecting"
		if calls == 2 {
			message = "element not found"
		}
		return types.Outcome{
			Status:  types.StatusFailed,
			Failure: &types.Failure{Message: message},
		}
	}
	policy := Policy{
		MaxAttempts: 5,
		Retryable: func(f types.Failure) bool {
			return f.Message == "timeout while connecting"
		},
	}

	result := Run(context.Background(), "search-flow", invoke, policy, testLogger())

	assert.Equal(t, 2, calls, "the permanent failure on attempt 2 should stop the loop")
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Equal(t, "element not found", result.LastFailure())
}

func TestRunSynthesizesFailureDetail(t *testing.T) {
	invoke := func(ctx context.Context) types.Outcome {
		return types.Outcome{Status: types.StatusFailed}
	}

	result := Run(context.Background(), "silent-unit", invoke, Policy{MaxAttempts: 1}, testLogger())

	assert.Equal(t, types.StatusFailed, result.Status)
	require.Len(t, result.Attempts, 1)
	assert.NotEmpty(t, result.Attempts[0].Failure, "a failed outcome without detail should still carry a summary")
}

func TestRunCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	result := Run(ctx, "unit", alwaysFail(&calls, "irrelevant"), Policy{MaxAttempts: 3}, testLogger())

	assert.Equal(t, types.StatusCancelled, result.Status)
	assert.Equal(t, 0, calls, "a dead context should prevent any invocation")
	assert.Equal(t, 0, result.AttemptsUsed)
}

func TestRunCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	invoke := func(c context.Context) types.Outcome {
		calls++
		cancel()
		return types.Outcome{
			Status:  types.StatusFailed,
			Failure: &types.Failure{Message: "connection reset"},
		}
	}
	policy := Policy{MaxAttempts: 3, Delay: 10 * time.Second}

	start := time.Now()
	result := Run(ctx, "unit", invoke, policy, testLogger())

	assert.Equal(t, types.StatusCancelled, result.Status)
	assert.Equal(t, 1, calls)
	require.Len(t, result.Attempts, 1, "the attempt made before cancellation should be preserved")
	assert.Less(t, time.Since(start), 2*time.Second, "cancellation should interrupt the backoff delay")
}

func TestNormalizeClampsInvalidFields(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		expected Policy
	}{
		{
			name:     "Zero max attempts clamps to one",
			policy:   Policy{MaxAttempts: 0, Delay: time.Second},
			expected: Policy{MaxAttempts: 1, Delay: time.Second},
		},
		{
			name:     "Negative max attempts clamps to one",
			policy:   Policy{MaxAttempts: -5},
			expected: Policy{MaxAttempts: 1},
		},
		{
			name:     "Negative delay clamps to zero",
			policy:   Policy{MaxAttempts: 3, Delay: -time.Second},
			expected: Policy{MaxAttempts: 3, Delay: 0},
		},
		{
			name:     "Valid policy unchanged",
			policy:   Policy{MaxAttempts: 3, Delay: 2 * time.Second, ExponentialBackoff: true},
			expected: Policy{MaxAttempts: 3, Delay: 2 * time.Second, ExponentialBackoff: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Normalize(testLogger())
			assert.Equal(t, tt.expected.MaxAttempts, got.MaxAttempts)
			assert.Equal(t, tt.expected.Delay, got.Delay)
			assert.Equal(t, tt.expected.ExponentialBackoff, got.ExponentialBackoff)
		})
	}
}

func TestRunClampedPolicyRunsOnce(t *testing.T) {
	calls := 0
	result := Run(context.Background(), "unit", alwaysFail(&calls, "boom"), Policy{MaxAttempts: 0}, testLogger())

	assert.Equal(t, 1, calls, "an invalid max attempts should still yield one attempt")
	assert.Equal(t, 1, result.AttemptsUsed)
}

func TestDelayForFixedBackoff(t *testing.T) {
	policy := Policy{Delay: 500 * time.Millisecond}

	for attempt := 2; attempt <= 5; attempt++ {
		assert.Equal(t, 500*time.Millisecond, policy.DelayFor(attempt),
			"fixed backoff should use the same delay before attempt %d", attempt)
	}
}

func TestDelayForExponentialBackoff(t *testing.T) {
	policy := Policy{Delay: 100 * time.Millisecond, ExponentialBackoff: true}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{5, 800 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, policy.DelayFor(tt.attempt))
		})
	}
}

func TestDelayForCapsAtMaxBackoff(t *testing.T) {
	policy := Policy{Delay: 10 * time.Second, ExponentialBackoff: true}

	// 10s * 2^8 would be far past the ceiling
	assert.Equal(t, MaxBackoffDelay, policy.DelayFor(10))
}

func TestDelayForFirstAttemptIsZero(t *testing.T) {
	policy := Policy{Delay: time.Second, ExponentialBackoff: true}
	assert.Equal(t, time.Duration(0), policy.DelayFor(1))
}

func TestRunHonorsBackoffDelays(t *testing.T) {
	calls := 0
	policy := Policy{MaxAttempts: 3, Delay: 50 * time.Millisecond}

	start := time.Now()
	Run(context.Background(), "unit", alwaysFail(&calls, "flap"), policy, testLogger())
	elapsed := time.Since(start)

	// Two retries, each preceded by the fixed delay
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond, "both retry delays should be observed")
	assert.Equal(t, 3, calls)
}
