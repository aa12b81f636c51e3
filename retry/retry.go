// Package retry wraps a single scenario invocation with bounded retry
// and backoff. Integration is a plain higher-order call: the execution
// engine supplies a zero-argument invocation and a Policy value, and
// receives a complete ExecutionResult with the full attempt history.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qa-infra/scenario-acceptor/types"
)

// MaxBackoffDelay caps a single exponential backoff delay so a
// misconfigured policy cannot stall an execution context indefinitely.
const MaxBackoffDelay = 30 * time.Second

// Policy is an immutable value object governing whether and how a
// failing unit is re-attempted.
type Policy struct {
	MaxAttempts        int
	Delay              time.Duration
	ExponentialBackoff bool

	// Retryable classifies a failure as transient (retry) or permanent
	// (stop immediately). A nil predicate retries every failure.
	Retryable func(types.Failure) bool
}

// Normalize defensively clamps invalid numeric fields. Clamping is
// logged as a warning rather than aborting the run.
func (p Policy) Normalize(logger log.Logger) Policy {
	if p.MaxAttempts < 1 {
		logger.Warn("Invalid max attempts, clamping to 1", "maxAttempts", p.MaxAttempts)
		p.MaxAttempts = 1
	}
	if p.Delay < 0 {
		logger.Warn("Negative retry delay, clamping to 0", "delay", p.Delay)
		p.Delay = 0
	}
	return p
}

// DelayFor returns the delay preceding the given attempt number
// (attempt >= 2): the configured delay when backoff is fixed, or
// delay * 2^(attempt-2) capped at MaxBackoffDelay when exponential.
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	if !p.ExponentialBackoff {
		return p.Delay
	}
	d := time.Duration(float64(p.Delay) * math.Pow(2, float64(attempt-2)))
	if d > MaxBackoffDelay || d < 0 {
		d = MaxBackoffDelay
	}
	return d
}

func (p Policy) retryable(f types.Failure) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(f)
}

// Invocation is one execution of a test unit by the external scenario
// executor. It must honor context cancellation.
type Invocation func(ctx context.Context) types.Outcome

// Run executes an invocation under the given policy and produces the
// final ExecutionResult for the unit. It stops on the first success,
// when attempts are exhausted, or as soon as a failure is classified as
// permanent. The retry delay suspends only the calling execution
// context; a cancelled context ends the run with status cancelled while
// preserving the attempts made so far.
func Run(ctx context.Context, unitID string, invoke Invocation, policy Policy, logger log.Logger) types.ExecutionResult {
	policy = policy.Normalize(logger)

	start := time.Now()
	result := types.ExecutionResult{
		UnitID: unitID,
	}

	finish := func(status types.Status) types.ExecutionResult {
		result.Status = status
		result.AttemptsUsed = len(result.Attempts)
		result.Duration = time.Since(start)
		result.Timestamp = time.Now()
		return result
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return finish(types.StatusCancelled)
		}

		logger.Debug("Executing unit", "unit", unitID, "attempt", attempt, "maxAttempts", policy.MaxAttempts)
		outcome := invoke(ctx)

		record := types.Attempt{
			Number:   attempt,
			Status:   outcome.Status,
			Duration: outcome.Duration,
		}
		failure := outcome.Failure
		if outcome.Status != types.StatusPassed && failure == nil {
			failure = &types.Failure{Message: "scenario failed without detail"}
		}
		if failure != nil {
			record.Failure = failure.Message
		}
		result.Attempts = append(result.Attempts, record)

		if outcome.Status == types.StatusPassed {
			if attempt > 1 {
				logger.Info("Unit passed after retry", "unit", unitID, "attempt", attempt)
			}
			return finish(types.StatusPassed)
		}

		if attempt == policy.MaxAttempts {
			logger.Warn("Unit failed, attempts exhausted", "unit", unitID, "attempts", attempt, "failure", failure.Message)
			return finish(outcome.Status)
		}

		if !policy.retryable(*failure) {
			logger.Warn("Unit failed permanently, not retrying", "unit", unitID, "attempt", attempt, "failure", failure.Message)
			return finish(outcome.Status)
		}

		delay := policy.DelayFor(attempt + 1)
		logger.Info("Unit failed, retrying", "unit", unitID, "attempt", attempt, "delay", delay, "failure", failure.Message)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return finish(types.StatusCancelled)
			}
		}
	}

	// Unreachable: the loop always returns on the final attempt
	return finish(types.StatusError)
}
