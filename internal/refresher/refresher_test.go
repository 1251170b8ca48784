package refresher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stracscan/sentinel/internal/db"
)

type fakeProgressRefresher struct {
	calls  int
	result db.RefreshResult
	err    error
}

func (f *fakeProgressRefresher) RefreshProgress(_ context.Context) (db.RefreshResult, error) {
	f.calls++
	return f.result, f.err
}

func TestRunOnce_ReturnsResultOnSuccess(t *testing.T) {
	fr := &fakeProgressRefresher{result: db.RefreshResult{RefreshType: "concurrent", TotalJobs: 3}}
	r := New(fr, nil)

	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "concurrent", res.RefreshType)
	assert.Equal(t, int64(3), res.TotalJobs)
	assert.Equal(t, 1, fr.calls)
}

func TestRunOnce_PropagatesNoProgressViewUnwrapped(t *testing.T) {
	fr := &fakeProgressRefresher{err: db.ErrNoProgressView}
	r := New(fr, nil)

	_, err := r.RunOnce(context.Background())
	assert.ErrorIs(t, err, db.ErrNoProgressView)
}

func TestSchedule_RunsAtLeastOnceThenStop(t *testing.T) {
	fr := &fakeProgressRefresher{result: db.RefreshResult{RefreshType: "concurrent"}}
	r := New(fr, nil)

	require.NoError(t, r.Schedule(context.Background(), "@every 1s"))
	defer r.Stop()

	assert.Eventually(t, func() bool { return fr.calls >= 1 }, 3*time.Second, 50*time.Millisecond)
}
