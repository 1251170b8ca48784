package orchestrator

import (
	"context"
	"sync"

	"github.com/stracscan/sentinel/internal/models"
)

// fakeJobPersister is an in-memory JobPersister for orchestrator tests.
type fakeJobPersister struct {
	mu        sync.Mutex
	jobs      map[string]models.Job
	InsertErr error
}

func newFakeJobPersister() *fakeJobPersister {
	return &fakeJobPersister{jobs: make(map[string]models.Job)}
}

func (f *fakeJobPersister) InsertJob(_ context.Context, job models.Job) error {
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeJobPersister) GetJob(_ context.Context, jobID string) (models.Job, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	return job, ok, nil
}
