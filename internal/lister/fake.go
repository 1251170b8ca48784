package lister

import (
	"context"
	"sync"

	"github.com/stracscan/sentinel/internal/models"
)

// FakeInserter is an in-memory Inserter used by unit tests so the
// Lister can run without a network dependency on PostgreSQL.
type FakeInserter struct {
	mu      sync.Mutex
	objects []models.ObjectRef
}

// NewFakeInserter returns an empty in-memory inserter.
func NewFakeInserter() *FakeInserter { return &FakeInserter{} }

func (f *FakeInserter) InsertObjects(_ context.Context, _ string, objects []models.ObjectRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = append(f.objects, objects...)
	return nil
}

// Count returns the number of objects recorded so far (test helper).
func (f *FakeInserter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}
