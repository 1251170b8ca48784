package stepfn

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
)

// SFNDriver is the real Driver implementation backed by AWS Step
// Functions.
type SFNDriver struct {
	client      *sfn.Client
	stateMachine string
}

// NewSFNDriver wraps an already-configured SFN client bound to the
// given state machine ARN.
func NewSFNDriver(client *sfn.Client, stateMachineArn string) *SFNDriver {
	return &SFNDriver{client: client, stateMachine: stateMachineArn}
}

func (d *SFNDriver) Start(ctx context.Context, name string, inputJSON []byte) (string, error) {
	out, err := d.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(d.stateMachine),
		Name:            aws.String(name),
		Input:           aws.String(string(inputJSON)),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.ExecutionArn), nil
}

func (d *SFNDriver) Describe(ctx context.Context, arn string) (Execution, error) {
	out, err := d.client.DescribeExecution(ctx, &sfn.DescribeExecutionInput{
		ExecutionArn: aws.String(arn),
	})
	if err != nil {
		var notFound *types.ExecutionDoesNotExist
		if errors.As(err, &notFound) {
			return Execution{}, ErrNoExecution
		}
		return Execution{}, err
	}

	exec := Execution{Arn: arn}
	switch out.Status {
	case types.ExecutionStatusRunning:
		exec.State = ExecutionRunning
	case types.ExecutionStatusSucceeded:
		exec.State = ExecutionSucceeded
	case types.ExecutionStatusFailed:
		exec.State = ExecutionFailed
	case types.ExecutionStatusTimedOut:
		exec.State = ExecutionTimedOut
	case types.ExecutionStatusAborted:
		exec.State = ExecutionAborted
	default:
		exec.State = ExecutionFailed
	}
	return exec, nil
}
