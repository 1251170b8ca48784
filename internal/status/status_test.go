package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/stepfn"
)

func TestGet_UnknownJobReturnsNotFound(t *testing.T) {
	r := newFakeReader()
	a := New(r, nil)

	_, found, err := a.Get(context.Background(), "missing", false)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGet_NoExecutionNoObjectsIsCompleted(t *testing.T) {
	r := newFakeReader()
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b"}
	r.stats["job-1"] = models.JobStats{}
	a := New(r, nil)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "completed", s.OverallStatus)
	assert.Equal(t, "real_time", s.DataSource)
}

func TestGet_NoExecutionPartiallyProcessedIsProcessing(t *testing.T) {
	r := newFakeReader()
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b"}
	r.stats["job-1"] = models.JobStats{Total: 10, Succeeded: 4, Failed: 1}
	a := New(r, nil)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "processing", s.OverallStatus)
	assert.InDelta(t, 50.0, s.ProgressPercent, 0.001)
}

func TestGet_RunningExecutionReportsListingRegardlessOfCounters(t *testing.T) {
	r := newFakeReader()
	arn := "arn:aws:states:fake:execution:scan-job-1"
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b", ExecutionArn: &arn}
	r.stats["job-1"] = models.JobStats{Total: 10, Succeeded: 10}

	driver := stepfn.NewFakeDriver()
	driver.SetState(arn, stepfn.ExecutionRunning)
	a := New(r, driver)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "listing", s.OverallStatus)
}

func TestGet_SucceededExecutionDefersToCounters(t *testing.T) {
	r := newFakeReader()
	arn := "arn:aws:states:fake:execution:scan-job-1"
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b", ExecutionArn: &arn}
	r.stats["job-1"] = models.JobStats{Total: 10, Succeeded: 10}

	driver := stepfn.NewFakeDriver()
	driver.SetState(arn, stepfn.ExecutionSucceeded)
	a := New(r, driver)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "completed", s.OverallStatus)
}

func TestGet_FailedExecutionIsTerminalFailed(t *testing.T) {
	r := newFakeReader()
	arn := "arn:aws:states:fake:execution:scan-job-1"
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b", ExecutionArn: &arn}
	r.stats["job-1"] = models.JobStats{}

	driver := stepfn.NewFakeDriver()
	driver.SetState(arn, stepfn.ExecutionFailed)
	a := New(r, driver)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "failed", s.OverallStatus)
}

func TestGet_UsesCachedProgressWhenViewExists(t *testing.T) {
	r := newFakeReader()
	r.hasView = true
	r.cachedProgress["job-1"] = models.ProgressView{
		JobID: "job-1", Bucket: "b", Total: 10, Succeeded: 10, ProgressPercent: 100,
	}
	a := New(r, nil)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "cached", s.DataSource)
	assert.Equal(t, "completed", s.OverallStatus)
}

func TestGet_RealTimeFlagBypassesCache(t *testing.T) {
	r := newFakeReader()
	r.hasView = true
	r.cachedProgress["job-1"] = models.ProgressView{JobID: "job-1", Bucket: "b"}
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b"}
	r.stats["job-1"] = models.JobStats{}
	a := New(r, nil)

	s, found, err := a.Get(context.Background(), "job-1", true)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "real_time", s.DataSource)
}

func TestGet_JobNotYetInViewFallsBackToRealTime(t *testing.T) {
	r := newFakeReader()
	r.hasView = true
	r.jobs["job-1"] = models.Job{JobID: "job-1", Bucket: "b"}
	r.stats["job-1"] = models.JobStats{Total: 2, Succeeded: 2}
	a := New(r, nil)

	s, found, err := a.Get(context.Background(), "job-1", false)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "real_time", s.DataSource)
}
