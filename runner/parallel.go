package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/qa-infra/scenario-acceptor/metrics"
	"github.com/qa-infra/scenario-acceptor/retry"
	"github.com/qa-infra/scenario-acceptor/types"
)

// groupOutcome is the message an execution context sends back to the
// aggregator once its group is finished. Contexts share no state; all
// results travel through this message.
type groupOutcome struct {
	Group       types.TestGroup
	Results     []types.ExecutionResult
	CrashReason string // non-empty when the context terminated abnormally
}

// executeGroups fans the groups out over the worker pool and returns a
// channel of group outcomes that closes once every group has finished.
// The queue channel is preloaded in declaration order, so groups beyond
// the pool size are consumed FIFO.
func (r *Runner) executeGroups(ctx context.Context, runID string, groups []types.TestGroup) <-chan groupOutcome {
	queue := make(chan types.TestGroup, len(groups))
	for _, group := range groups {
		queue <- group
	}
	close(queue)

	outcomes := make(chan groupOutcome, len(groups))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			wlog := r.log.New("worker", workerID)
			wlog.Debug("Worker starting")
			defer wlog.Debug("Worker exiting")

			// Keep draining even after cancellation so queued groups
			// get their units recorded as cancelled
			for group := range queue {
				outcomes <- r.runGroup(ctx, runID, group)
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	return outcomes
}

// runGroup executes one group inside its own isolated context. Units run
// in declaration order, each wrapped with its applicable retry policy.
// A panic is absorbed here: completed results survive, unfinished units
// are recorded as errors, and sibling groups are unaffected.
func (r *Runner) runGroup(ctx context.Context, runID string, group types.TestGroup) groupOutcome {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("group %s", group.ID))
	defer span.End()

	glog := r.log.New("group", group.ID)

	gctx, cancel := context.WithTimeout(ctx, r.groupTimeout)
	defer cancel()

	outcome := groupOutcome{
		Group:   group,
		Results: make([]types.ExecutionResult, 0, group.Size()),
	}

	completed := 0
	func() {
		defer func() {
			if p := recover(); p != nil {
				outcome.CrashReason = fmt.Sprintf("execution context crashed: %v", p)
				glog.Error("Execution context crashed", "reason", outcome.CrashReason,
					"completed", completed, "remaining", group.Size()-completed)
			}
		}()

		for _, unit := range group.Units {
			if gctx.Err() != nil {
				return
			}

			policy := r.policies.PolicyFor(unit)
			res := retry.Run(gctx, unit.ID, func(c context.Context) types.Outcome {
				return r.executor(c, unit)
			}, policy, glog)
			res.GroupID = group.ID

			// A retry loop interrupted by the group deadline reports
			// cancelled; reclassify it as a timeout unless the whole
			// run was stopped externally
			if res.Status == types.StatusCancelled && ctx.Err() == nil &&
				errors.Is(gctx.Err(), context.DeadlineExceeded) {
				res.Status = types.StatusTimeout
			}

			sanitizeAttempts(&res)
			outcome.Results = append(outcome.Results, res)
			completed++

			metrics.RecordUnitResult(runID, group.ID, unit.ID, res.Status)
			if r.stats != nil {
				r.stats.Record(unit.ID, res.AttemptsUsed, res.Status == types.StatusPassed)
			}
		}
	}()

	// Record every unfinished unit so the run produces exactly one
	// result per unit regardless of how the group ended
	for _, unit := range group.Units[completed:] {
		res := r.unfinishedResult(ctx, gctx, group, unit, outcome.CrashReason)
		outcome.Results = append(outcome.Results, res)
		metrics.RecordUnitResult(runID, group.ID, unit.ID, res.Status)
	}

	if len(outcome.Results) > completed {
		glog.Warn("Group ended with unfinished units",
			"completed", completed, "unfinished", len(outcome.Results)-completed)
	}

	return outcome
}

// unfinishedResult builds the result for a unit its group never
// completed: error on crash, timeout on an exceeded group budget,
// cancelled on an external stop.
func (r *Runner) unfinishedResult(ctx, gctx context.Context, group types.TestGroup, unit types.TestUnit, crashReason string) types.ExecutionResult {
	var status types.Status
	var reason string
	switch {
	case crashReason != "":
		status = types.StatusError
		reason = crashReason
	case ctx.Err() == nil && errors.Is(gctx.Err(), context.DeadlineExceeded):
		status = types.StatusTimeout
		reason = fmt.Sprintf("group exceeded wall-clock budget of %s", r.groupTimeout)
	default:
		status = types.StatusCancelled
		reason = "run cancelled before unit executed"
	}

	return types.ExecutionResult{
		UnitID:       unit.ID,
		GroupID:      group.ID,
		Status:       status,
		AttemptsUsed: 1,
		Attempts:     []types.Attempt{{Number: 1, Status: status, Failure: reason}},
		Timestamp:    time.Now(),
	}
}

// sanitizeAttempts strips ANSI escape codes from failure summaries so
// persisted and logged output stays readable
func sanitizeAttempts(res *types.ExecutionResult) {
	for i := range res.Attempts {
		if res.Attempts[i].Failure != "" {
			res.Attempts[i].Failure = stripansi.Strip(res.Attempts[i].Failure)
		}
	}
}
