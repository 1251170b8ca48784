// Package store abstracts the object store (AWS S3) operations the
// scanner depends on: paginated listing, metadata HEAD, and body GET.
package store

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("store: object not found")

// ListedObject is one entry returned by a listing page.
type ListedObject struct {
	Key  string
	ETag string
	Size int64
}

// ListPage is one page of a paginated listing.
type ListPage struct {
	Objects               []ListedObject
	Truncated             bool
	NextContinuationToken string
}

// Metadata is the result of a HEAD request.
type Metadata struct {
	Size        int64
	ContentType string
}

// Store is the object-store contract the Lister and Worker depend on.
// The real implementation wraps aws-sdk-go-v2/service/s3; fake.go
// provides an in-memory stand-in for tests.
type Store interface {
	// List returns one page of objects under bucket/prefix, honoring a
	// continuation token from a prior call. pageSize is clamped to the
	// store's own page-size ceiling.
	List(ctx context.Context, bucket, prefix, continuationToken string, pageSize int) (ListPage, error)

	// Head returns size and content type for bucket/key.
	Head(ctx context.Context, bucket, key string) (Metadata, error)

	// Get streams the object body for bucket/key. Callers must close
	// the returned reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
