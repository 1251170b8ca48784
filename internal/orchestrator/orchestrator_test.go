package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stracscan/sentinel/internal/bus"
	"github.com/stracscan/sentinel/internal/lister"
	"github.com/stracscan/sentinel/internal/stepfn"
	"github.com/stracscan/sentinel/internal/store"
)

func TestCreateJob_WithDriver_StartsExecutionAndReturnsAsync(t *testing.T) {
	persister := newFakeJobPersister()
	driver := stepfn.NewFakeDriver()
	o := New(persister, driver, nil, nil)

	res, err := o.CreateJob(context.Background(), "my-bucket", "prefix/")
	require.NoError(t, err)

	assert.True(t, res.Async)
	assert.Equal(t, "listing", res.Status)
	assert.NotEmpty(t, res.JobID)
	assert.NotEmpty(t, res.ExecutionArn)

	job, ok, err := persister.GetJob(context.Background(), res.JobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "my-bucket", job.Bucket)
	require.NotNil(t, job.ExecutionArn)
	assert.Equal(t, res.ExecutionArn, *job.ExecutionArn)
}

func TestCreateJob_WithoutDriver_RunsSyncFallbackToCompletion(t *testing.T) {
	fs := store.NewFakeStore()
	for i := 0; i < 5; i++ {
		fs.Put("my-bucket", "data/file"+string(rune('a'+i))+".txt", []byte("x"), "")
	}
	fi := lister.NewFakeInserter()
	fb := bus.NewFakeBus()
	l := lister.New(fs, fi, fb, nil)

	persister := newFakeJobPersister()
	o := New(persister, nil, l, nil)

	res, err := o.CreateJob(context.Background(), "my-bucket", "")
	require.NoError(t, err)

	assert.False(t, res.Async)
	assert.Equal(t, "queued", res.Status)
	assert.Equal(t, 5, res.TotalObjects)
	assert.Equal(t, 5, res.MessagesEnqueued)

	_, ok, err := persister.GetJob(context.Background(), res.JobID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateJob_AsyncJobRecordFailureDoesNotFailTheCall(t *testing.T) {
	persister := newFakeJobPersister()
	persister.InsertErr = assertErr
	driver := stepfn.NewFakeDriver()
	o := New(persister, driver, nil, nil)

	res, err := o.CreateJob(context.Background(), "my-bucket", "")
	require.NoError(t, err)
	assert.True(t, res.Async)
}

var assertErr = errTest("job insert failed")

type errTest string

func (e errTest) Error() string { return string(e) }
