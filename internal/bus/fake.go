package bus

import (
	"context"
	"strconv"
	"sync"
)

type pendingMessage struct {
	body          []byte
	receiptHandle string
}

// FakeBus is an in-memory Bus used by unit tests for the Lister and
// Worker so they can run without a network dependency on SQS.
type FakeBus struct {
	mu      sync.Mutex
	queue   []pendingMessage
	nextID  int
	deleted map[string]bool
}

// NewFakeBus returns an empty in-memory bus.
func NewFakeBus() *FakeBus {
	return &FakeBus{deleted: make(map[string]bool)}
}

func (f *FakeBus) SendBatch(_ context.Context, entries []SendEntry) (SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range entries {
		f.nextID++
		f.queue = append(f.queue, pendingMessage{
			body:          e.Body,
			receiptHandle: strconv.Itoa(f.nextID),
		})
	}
	return SendResult{Succeeded: len(entries)}, nil
}

func (f *FakeBus) Receive(_ context.Context, maxMessages int, _ int) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}
	n := maxMessages
	if n > len(f.queue) {
		n = len(f.queue)
	}

	out := make([]Message, 0, n)
	for _, m := range f.queue[:n] {
		out = append(out, Message{Body: m.body, ReceiptHandle: m.receiptHandle})
	}
	f.queue = f.queue[n:]
	return out, nil
}

func (f *FakeBus) DeleteBatch(_ context.Context, receiptHandles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rh := range receiptHandles {
		f.deleted[rh] = true
	}
	return nil
}

// Len reports the number of messages still queued (test helper).
func (f *FakeBus) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// WasDeleted reports whether the given receipt handle was acknowledged.
func (f *FakeBus) WasDeleted(receiptHandle string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[receiptHandle]
}
