package status

import (
	"context"

	"github.com/stracscan/sentinel/internal/models"
)

type fakeReader struct {
	jobs           map[string]models.Job
	stats          map[string]models.JobStats
	cachedProgress map[string]models.ProgressView
	refreshLog     map[string]models.RefreshLog
	hasView        bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		jobs:           make(map[string]models.Job),
		stats:          make(map[string]models.JobStats),
		cachedProgress: make(map[string]models.ProgressView),
		refreshLog:     make(map[string]models.RefreshLog),
	}
}

func (f *fakeReader) GetJob(_ context.Context, jobID string) (models.Job, bool, error) {
	j, ok := f.jobs[jobID]
	return j, ok, nil
}

func (f *fakeReader) HasProgressView(_ context.Context) (bool, error) {
	return f.hasView, nil
}

func (f *fakeReader) GetCachedProgress(_ context.Context, jobID string) (models.ProgressView, bool, error) {
	v, ok := f.cachedProgress[jobID]
	return v, ok, nil
}

func (f *fakeReader) GetRefreshLog(_ context.Context, viewName string) (models.RefreshLog, bool, error) {
	l, ok := f.refreshLog[viewName]
	return l, ok, nil
}

func (f *fakeReader) GetJobStats(_ context.Context, jobID string) (models.JobStats, error) {
	return f.stats[jobID], nil
}
