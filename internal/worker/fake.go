package worker

import (
	"context"
	"sync"

	"github.com/stracscan/sentinel/internal/detector"
	"github.com/stracscan/sentinel/internal/models"
)

type statusUpdate struct {
	Status    models.ObjectStatus
	LastError *string
}

// FakePersister is an in-memory Persister used by unit tests so the
// Worker can run without a network dependency on PostgreSQL.
type FakePersister struct {
	mu             sync.Mutex
	statuses       map[string]statusUpdate
	findingsByKey  map[string][]detector.Finding
	InsertFindingsErr error
	UpdateStatusErr   error
}

// NewFakePersister returns an empty in-memory persister.
func NewFakePersister() *FakePersister {
	return &FakePersister{
		statuses:      make(map[string]statusUpdate),
		findingsByKey: make(map[string][]detector.Finding),
	}
}

func objectKey(jobID, bucket, key, etag string) string {
	return jobID + "|" + bucket + "|" + key + "|" + etag
}

func (f *FakePersister) UpdateObjectStatus(_ context.Context, jobID, bucket, key, etag string, status models.ObjectStatus, lastError *string) (bool, error) {
	if f.UpdateStatusErr != nil {
		return false, f.UpdateStatusErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[objectKey(jobID, bucket, key, etag)] = statusUpdate{Status: status, LastError: lastError}
	return true, nil
}

func (f *FakePersister) InsertFindings(_ context.Context, findings []detector.Finding, jobID, bucket, key, etag string) (int, error) {
	if f.InsertFindingsErr != nil {
		return 0, f.InsertFindingsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findingsByKey[objectKey(jobID, bucket, key, etag)] = findings
	return len(findings), nil
}

// LastStatus returns the most recent status update recorded for a key
// (test helper).
func (f *FakePersister) LastStatus(jobID, bucket, key, etag string) (statusUpdate, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[objectKey(jobID, bucket, key, etag)]
	return s, ok
}

// StatusCallCount returns the number of distinct objects
// UpdateObjectStatus has been called for (test helper).
func (f *FakePersister) StatusCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.statuses)
}
