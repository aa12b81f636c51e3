package types

import "time"

// Status represents the possible final states of a unit execution
type Status string

const (
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// String implements the Stringer interface for Status
func (s Status) String() string {
	return string(s)
}

// IsPass reports whether the status counts as a passing outcome
func (s Status) IsPass() bool {
	return s == StatusPassed
}

// Failure describes a single failed invocation of a unit. The retryable
// predicate of a policy classifies it as transient or permanent.
type Failure struct {
	Message string `json:"message"`
}

// Outcome is what the external scenario executor reports for one
// invocation of a unit. Failure is nil when the invocation passed.
type Outcome struct {
	Status   Status
	Duration time.Duration
	Failure  *Failure
}

// Attempt records one invocation of a unit within a run, in order
type Attempt struct {
	Number   int           `json:"number"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
	Failure  string        `json:"failure,omitempty"`
}

// ExecutionResult captures the final outcome of a single test unit for
// one run. It is produced exactly once per unit and owned by the runner
// until handed to the history store.
type ExecutionResult struct {
	UnitID       string        `json:"unit_id"`
	GroupID      string        `json:"group_id"`
	Status       Status        `json:"status"`
	Duration     time.Duration `json:"duration"`
	AttemptsUsed int           `json:"attempts_used"`
	Attempts     []Attempt     `json:"attempts,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// LastFailure returns the failure summary of the final attempt, or the
// empty string if the unit ultimately passed.
func (r ExecutionResult) LastFailure() string {
	if r.Status == StatusPassed || len(r.Attempts) == 0 {
		return ""
	}
	return r.Attempts[len(r.Attempts)-1].Failure
}
