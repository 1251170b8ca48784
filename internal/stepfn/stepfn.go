// Package stepfn abstracts the external durable-loop executor (AWS Step
// Functions) the Job Orchestrator and Status Aggregator depend on. The
// Lister/Enqueuer is deliberately one step of a loop whose driver is
// external; implementations must not assume a specific driver, so
// every caller reaches the driver only through this interface.
package stepfn

import (
	"context"
	"errors"
)

// ErrNoExecution is returned by Describe when the execution reference
// is unknown to the driver (e.g. the job predates the driver, or no
// external driver is configured at all).
var ErrNoExecution = errors.New("stepfn: execution not found")

// ExecutionState is the coarse state of a durable-loop execution.
type ExecutionState string

const (
	ExecutionRunning   ExecutionState = "running"
	ExecutionSucceeded ExecutionState = "succeeded"
	ExecutionFailed    ExecutionState = "failed"
	ExecutionTimedOut  ExecutionState = "timed_out"
	ExecutionAborted   ExecutionState = "aborted"
)

// Execution describes the current state of one durable-loop run.
type Execution struct {
	Arn   string
	State ExecutionState
}

// Driver starts and inspects durable-loop executions. The real
// implementation wraps aws-sdk-go-v2/service/sfn.
type Driver interface {
	// Start begins a new execution with the given deterministic name
	// and JSON input, returning its execution ARN.
	Start(ctx context.Context, name string, inputJSON []byte) (arn string, err error)

	// Describe reports the current state of a previously started
	// execution. Returns ErrNoExecution if arn is unknown.
	Describe(ctx context.Context, arn string) (Execution, error)
}
