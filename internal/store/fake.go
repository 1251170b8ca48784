package store

import (
	"context"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type fakeObject struct {
	body []byte
	etag string
}

// FakeStore is an in-memory Store used by unit tests for the Lister and
// Worker so they can run without a network dependency on S3.
type FakeStore struct {
	mu      sync.Mutex
	objects map[string]map[string]fakeObject // bucket -> key -> object
}

// NewFakeStore returns an empty in-memory store.
func NewFakeStore() *FakeStore {
	return &FakeStore{objects: make(map[string]map[string]fakeObject)}
}

// Put seeds an object. If etag is empty, one is derived deterministically
// as the number of keys already in the bucket plus one, so distinct keys
// put in sequence get distinct etags.
func (f *FakeStore) Put(bucket, key string, body []byte, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects[bucket] == nil {
		f.objects[bucket] = make(map[string]fakeObject)
	}
	if etag == "" {
		etag = strconv.Itoa(len(f.objects[bucket]) + 1)
	}
	f.objects[bucket][key] = fakeObject{body: body, etag: etag}
}

func (f *FakeStore) List(_ context.Context, bucket, prefix, continuationToken string, pageSize int) (ListPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pageSize <= 0 {
		pageSize = 1000
	}

	keys := make([]string, 0, len(f.objects[bucket]))
	for k := range f.objects[bucket] {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if continuationToken != "" {
		if idx, err := strconv.Atoi(continuationToken); err == nil {
			start = idx
		}
	}
	if start > len(keys) {
		start = len(keys)
	}
	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}

	page := ListPage{}
	for _, k := range keys[start:end] {
		obj := f.objects[bucket][k]
		page.Objects = append(page.Objects, ListedObject{Key: k, ETag: obj.etag, Size: int64(len(obj.body))})
	}
	if end < len(keys) {
		page.Truncated = true
		page.NextContinuationToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *FakeStore) Head(_ context.Context, bucket, key string) (Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[bucket][key]
	if !ok {
		return Metadata{}, ErrNotFound
	}
	return Metadata{Size: int64(len(obj.body)), ContentType: "text/plain"}, nil
}

func (f *FakeStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(obj.body))), nil
}
