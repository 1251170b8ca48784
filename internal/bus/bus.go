// Package bus abstracts the message-bus (AWS SQS) operations the
// scanner depends on: batched send, long-poll receive, and batched
// delete, all keyed by a fair-scheduling grouping key.
package bus

import "context"

// Message is one received envelope plus the opaque handle needed to
// acknowledge it.
type Message struct {
	Body          []byte
	ReceiptHandle string
}

// SendEntry is one entry of a batched send.
type SendEntry struct {
	ID         string
	Body       []byte
	GroupID    string
}

// SendResult reports per-entry success/failure of a batched send.
type SendResult struct {
	Succeeded int
	Failed    int
}

// Bus is the message-bus contract the Lister and Worker depend on. The
// real implementation wraps aws-sdk-go-v2/service/sqs; fake.go provides
// an in-memory stand-in for tests.
type Bus interface {
	// SendBatch submits up to 10 entries in one call.
	SendBatch(ctx context.Context, entries []SendEntry) (SendResult, error)

	// Receive long-polls for up to maxMessages messages, waiting up to
	// waitSeconds for at least one to arrive.
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)

	// DeleteBatch removes the given receipt handles from the queue.
	DeleteBatch(ctx context.Context, receiptHandles []string) error
}
