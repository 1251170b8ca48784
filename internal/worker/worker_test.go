package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stracscan/sentinel/internal/bus"
	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/store"
)

func TestShouldProcessFile_AllowsSupportedExtensions(t *testing.T) {
	assert.True(t, shouldProcessFile("reports/data.csv", 100, 1000))
	assert.True(t, shouldProcessFile("a.JSON", 100, 1000))
	assert.True(t, shouldProcessFile("app.log", 100, 1000))
}

func TestShouldProcessFile_RejectsUnsupportedExtensions(t *testing.T) {
	assert.False(t, shouldProcessFile("image.png", 100, 1000))
	assert.False(t, shouldProcessFile("archive.zip", 100, 1000))
}

func TestShouldProcessFile_RejectsOversizedFiles(t *testing.T) {
	assert.False(t, shouldProcessFile("big.txt", 2000, 1000))
}

func TestDecodeText_ValidUTF8PassesThrough(t *testing.T) {
	text, ok := decodeText([]byte("hello world"))
	assert.True(t, ok)
	assert.Equal(t, "hello world", text)
}

func TestDecodeText_NonUTF8FallsBackSuccessfully(t *testing.T) {
	// 0xFF is invalid as a UTF-8 continuation/lead byte on its own.
	text, ok := decodeText([]byte{'a', 0xFF, 'b'})
	assert.True(t, ok)
	assert.NotEmpty(t, text)
}

func TestWorker_ProcessEnvelope_SucceedsWithFindings(t *testing.T) {
	fs := store.NewFakeStore()
	fs.Put("bucket", "data/file.txt", []byte("contact me at test@example.com please"), "etag-1")

	persister := NewFakePersister()
	w := New(fs, nil, persister, DefaultConfig(), nil)

	res := w.ProcessEnvelope(context.Background(), models.MessageEnvelope{
		JobID: "job-1", Bucket: "bucket", Key: "data/file.txt", ETag: "etag-1",
	})

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 1, res.FindingsCount)

	status, ok := persister.LastStatus("job-1", "bucket", "data/file.txt", "etag-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusSucceeded, status.Status)
}

func TestWorker_ProcessEnvelope_SkipsUnsupportedExtension(t *testing.T) {
	fs := store.NewFakeStore()
	fs.Put("bucket", "data/file.bin", []byte("whatever"), "etag-1")

	persister := NewFakePersister()
	w := New(fs, nil, persister, DefaultConfig(), nil)

	res := w.ProcessEnvelope(context.Background(), models.MessageEnvelope{
		JobID: "job-1", Bucket: "bucket", Key: "data/file.bin", ETag: "etag-1",
	})

	assert.Equal(t, OutcomeSkipped, res.Outcome)
	status, ok := persister.LastStatus("job-1", "bucket", "data/file.bin", "etag-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusSucceeded, status.Status) // skip still marks succeeded, per source behavior
}

func TestWorker_ProcessEnvelope_FailsOnMissingObject(t *testing.T) {
	fs := store.NewFakeStore() // nothing Put, Head returns ErrNotFound

	persister := NewFakePersister()
	w := New(fs, nil, persister, DefaultConfig(), nil)

	res := w.ProcessEnvelope(context.Background(), models.MessageEnvelope{
		JobID: "job-1", Bucket: "bucket", Key: "missing.txt", ETag: "etag-1",
	})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
	status, ok := persister.LastStatus("job-1", "bucket", "missing.txt", "etag-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusFailed, status.Status)
}

func TestWorker_ProcessBatch_UnparseableMessageIsRejectedWithoutTouchingDB(t *testing.T) {
	persister := NewFakePersister()
	w := New(store.NewFakeStore(), nil, persister, DefaultConfig(), nil)

	results := w.ProcessBatch(context.Background(), []bus.Message{
		{Body: []byte("not json"), ReceiptHandle: "rh-1"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, OutcomeRejected, results[0].Result.Outcome)
	assert.Equal(t, "rh-1", results[0].Result.ReceiptHandle)
	assert.Zero(t, persister.StatusCallCount(), "an unparseable envelope must never touch the persistence layer")
}

func TestWorker_ProcessBatch_MixedOutcomes(t *testing.T) {
	fs := store.NewFakeStore()
	fs.Put("bucket", "ok.txt", []byte("plain text, no findings here"), "e1")

	persister := NewFakePersister()
	w := New(fs, nil, persister, DefaultConfig(), nil)

	good, _ := json.Marshal(models.MessageEnvelope{JobID: "job-1", Bucket: "bucket", Key: "ok.txt", ETag: "e1"})
	bad, _ := json.Marshal(models.MessageEnvelope{JobID: "job-1", Bucket: "bucket", Key: "missing.txt", ETag: "e2"})

	results := w.ProcessBatch(context.Background(), []bus.Message{
		{Body: good, ReceiptHandle: "rh-good"},
		{Body: bad, ReceiptHandle: "rh-bad"},
	})

	require.Len(t, results, 2)
	outcomes := map[string]Outcome{}
	for _, r := range results {
		outcomes[r.Result.ReceiptHandle] = r.Result.Outcome
	}
	assert.Equal(t, OutcomeSucceeded, outcomes["rh-good"])
	assert.Equal(t, OutcomeFailed, outcomes["rh-bad"])
}

func TestWorker_Run_LeavesRejectedEnvelopeUnacknowledged(t *testing.T) {
	fb := bus.NewFakeBus()
	good, _ := json.Marshal(models.MessageEnvelope{JobID: "job-1", Bucket: "bucket", Key: "missing.txt", ETag: "e1"})
	_, err := fb.SendBatch(context.Background(), []bus.SendEntry{
		{Body: []byte("not json")},
		{Body: good},
	})
	require.NoError(t, err)

	persister := NewFakePersister()
	w := New(store.NewFakeStore(), fb, persister, DefaultConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return fb.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.False(t, fb.WasDeleted("1"), "rejected envelope must stay on the bus for the redrive policy")
	assert.True(t, fb.WasDeleted("2"), "a processed (failed) envelope is still acknowledged")
}

func TestWorker_ProcessEnvelope_FailsWhenInsertFindingsErrors(t *testing.T) {
	fs := store.NewFakeStore()
	fs.Put("bucket", "data/file.txt", []byte("ssn 123-45-6789 here"), "e1")

	persister := NewFakePersister()
	persister.InsertFindingsErr = errors.New("insert boom")
	w := New(fs, nil, persister, DefaultConfig(), nil)

	res := w.ProcessEnvelope(context.Background(), models.MessageEnvelope{
		JobID: "job-1", Bucket: "bucket", Key: "data/file.txt", ETag: "e1",
	})

	assert.Equal(t, OutcomeFailed, res.Outcome)
}
