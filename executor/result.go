package executor

import "time"

// Status is the terminal state of one operation.
type Status string

const (
	// StatusSuccess means the operation completed and produced output.
	StatusSuccess Status = "SUCCESS"
	// StatusFailure means the operation failed after exhausting local recovery.
	StatusFailure Status = "FAILURE"
	// StatusSkipped means the operation was never attempted because a
	// dependency did not succeed.
	StatusSkipped Status = "SKIPPED"
	// StatusCancelled means the run was cancelled before the operation started.
	StatusCancelled Status = "CANCELLED"
)

// RunStatus is the aggregate outcome of a run.
type RunStatus string

const (
	// RunSuccess means every operation succeeded.
	RunSuccess RunStatus = "SUCCESS"
	// RunPartialSuccess means some operations failed but required work was
	// at least partially done.
	RunPartialSuccess RunStatus = "PARTIAL_SUCCESS"
	// RunFailure means no required operation succeeded.
	RunFailure RunStatus = "FAILURE"
	// RunCancelled means the run was cancelled before completion.
	RunCancelled RunStatus = "CANCELLED"
)

// Result is the finalized outcome of one operation. It is created when the
// executor begins the operation and never mutated after completion.
type Result struct {
	// Type is the operation name from the plan.
	Type string
	// Status is the terminal state.
	Status Status
	// StartedAt and FinishedAt bound the attempt including retries. Both are
	// zero for operations that never started.
	StartedAt  time.Time
	FinishedAt time.Time
	// Err carries the full cause chain for FAILURE, and the reason for
	// SKIPPED/CANCELLED.
	Err error
	// Output is the operation's result value on success.
	Output any
}

// Report aggregates one run.
type Report struct {
	// PlanID ties the report to the plan it executed.
	PlanID string
	// Status is the aggregate outcome.
	Status RunStatus
	// Results holds one entry per planned operation, in declaration order.
	// No outcome is ever dropped.
	Results []Result
	// StartedAt and FinishedAt bound the whole run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Result returns the result for an operation type.
func (r *Report) Result(opType string) (Result, bool) {
	for _, res := range r.Results {
		if res.Type == opType {
			return res, true
		}
	}
	return Result{}, false
}

// Counts returns the number of results per status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, res := range r.Results {
		counts[res.Status]++
	}
	return counts
}
