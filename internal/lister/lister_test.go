package lister

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stracscan/sentinel/internal/bus"
	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/store"
)

func TestLister_Run_EmptyBucketIsDoneImmediately(t *testing.T) {
	l := New(store.NewFakeStore(), nil, nil, nil)

	out, err := l.Run(context.Background(), State{JobID: "job-1", Bucket: "empty-bucket"})
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, 0, out.BatchSize)
	assert.Equal(t, 0, out.MessagesEnqueued)
	assert.Equal(t, "", out.ContinuationToken)
}

func TestLister_Run_ListsInsertsAndEnqueuesAllObjects(t *testing.T) {
	fs := store.NewFakeStore()
	for i := 0; i < 23; i++ {
		fs.Put("my-bucket", objectKeyForIndex(i), []byte("hello world"), "")
	}

	fi := NewFakeInserter()
	fb := bus.NewFakeBus()

	l := New(fs, fi, fb, nil)

	out, err := l.Run(context.Background(), State{JobID: "job-1", Bucket: "my-bucket"})
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, 23, out.BatchSize)
	assert.Equal(t, 23, out.MessagesEnqueued)
	assert.Equal(t, 23, fi.Count())
	assert.Equal(t, 23, fb.Len())
}

func objectKeyForIndex(i int) string {
	return "objects/file-" + string(rune('a'+i%26)) + ".txt"
}

func TestLister_SubmitBatches_SplitsIntoGroupsOfTen(t *testing.T) {
	fb := newCountingBus()
	l := New(nil, nil, fb, nil)

	objects := make([]models.ObjectRef, 25)
	for i := range objects {
		objects[i] = models.ObjectRef{Bucket: "b", Key: "k"}
	}

	sent, err := l.submitBatches(context.Background(), "job-1", objects)
	require.NoError(t, err)
	assert.Equal(t, 25, sent)
	assert.Equal(t, 3, fb.batchesSeen()) // 10 + 10 + 5
}

func TestLister_SubmitBatches_PartialFailureDoesNotFailIteration(t *testing.T) {
	fb := newCountingBus()
	fb.failNth = 2 // whichever SendBatch call completes second reports a send error

	l := New(nil, nil, fb, nil)

	// two equal-sized batches so the result is deterministic regardless of
	// which one happens to finish "second" under concurrent scheduling.
	objects := make([]models.ObjectRef, 20)
	for i := range objects {
		objects[i] = models.ObjectRef{Bucket: "b", Key: "k"}
	}

	sent, err := l.submitBatches(context.Background(), "job-1", objects)
	require.NoError(t, err)
	// one batch of 10 succeeds, the other fails entirely and is logged, not propagated
	assert.Equal(t, 10, sent)
}

// countingBus counts SendBatch invocations and can be told to fail the nth call.
type countingBus struct {
	mu      sync.Mutex
	calls   int
	failNth int
}

func newCountingBus() *countingBus { return &countingBus{} }

func (c *countingBus) batchesSeen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingBus) SendBatch(_ context.Context, entries []bus.SendEntry) (bus.SendResult, error) {
	c.mu.Lock()
	c.calls++
	n := c.calls
	c.mu.Unlock()
	if c.failNth != 0 && n == c.failNth {
		return bus.SendResult{}, errors.New("simulated send failure")
	}
	return bus.SendResult{Succeeded: len(entries)}, nil
}

func (c *countingBus) Receive(_ context.Context, _ int, _ int) ([]bus.Message, error) {
	return nil, nil
}

func (c *countingBus) DeleteBatch(_ context.Context, _ []string) error { return nil }
