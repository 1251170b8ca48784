package stepfn

import (
	"context"
	"sync"
)

// FakeDriver is an in-memory Driver used by unit tests for the
// orchestrator and status aggregator.
type FakeDriver struct {
	mu         sync.Mutex
	executions map[string]Execution
	nextArn    int
	StartErr   error
}

// NewFakeDriver returns a driver with no executions yet started.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{executions: make(map[string]Execution)}
}

func (d *FakeDriver) Start(_ context.Context, name string, _ []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.StartErr != nil {
		return "", d.StartErr
	}
	d.nextArn++
	arn := "arn:aws:states:fake:execution:" + name
	d.executions[arn] = Execution{Arn: arn, State: ExecutionRunning}
	return arn, nil
}

func (d *FakeDriver) Describe(_ context.Context, arn string) (Execution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exec, ok := d.executions[arn]
	if !ok {
		return Execution{}, ErrNoExecution
	}
	return exec, nil
}

// SetState lets a test drive an execution through states deterministically.
func (d *FakeDriver) SetState(arn string, state ExecutionState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exec := d.executions[arn]
	exec.Arn = arn
	exec.State = state
	d.executions[arn] = exec
}
