// Package lister implements one iteration of the listing/enqueue
// pipeline: page through the object store, persist JobObject rows, and
// submit MessageEnvelope batches to the bus. The external durable loop
// re-invokes this component with the returned state until Done is true.
package lister

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/stracscan/sentinel/internal/bus"
	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/store"
)

// Inserter is the slice of the persistence layer the Lister depends
// on. *db.DB satisfies it; fake.go provides an in-memory stand-in for
// tests that never need a real PostgreSQL connection.
type Inserter interface {
	InsertObjects(ctx context.Context, jobID string, objects []models.ObjectRef) error
}

const (
	// BatchLimit is the maximum number of objects processed per
	// invocation.
	BatchLimit = 10000
	// ListPageSize is the page size used against the object store.
	ListPageSize = 1000
	// SendBatchSize is the message-bus batch-send maximum.
	SendBatchSize = 10
	// SubmitWorkers is the fan-out width for parallel batch submission.
	SubmitWorkers = 20
)

// State is the Lister's input/output shape, threaded through the
// external durable loop via continuation token and objects-processed
// counter.
type State struct {
	JobID             string
	Bucket            string
	Prefix            string
	ContinuationToken string
	ObjectsProcessed  int

	BatchSize       int
	MessagesEnqueued int
	Done            bool
}

// Lister runs one listing/enqueue iteration against a Store, DB, and
// Bus.
type Lister struct {
	store  store.Store
	db     Inserter
	bus    bus.Bus
	logger arbor.ILogger
}

// New builds a Lister from its collaborators.
func New(s store.Store, inserter Inserter, b bus.Bus, logger arbor.ILogger) *Lister {
	return &Lister{store: s, db: inserter, bus: b, logger: logger}
}

// Run executes one iteration: page listing up to BatchLimit objects,
// insert them as queued JobObjects (conflict-do-nothing), split into
// groups of SendBatchSize and submit concurrently over SubmitWorkers,
// then return the trailing continuation token.
func (l *Lister) Run(ctx context.Context, in State) (State, error) {
	out := in
	out.BatchSize = 0
	out.MessagesEnqueued = 0

	var objects []models.ObjectRef
	token := in.ContinuationToken
	for len(objects) < BatchLimit {
		page, err := l.store.List(ctx, in.Bucket, in.Prefix, token, ListPageSize)
		if err != nil {
			return in, fmt.Errorf("lister: list page: %w", err)
		}

		for _, obj := range page.Objects {
			objects = append(objects, models.ObjectRef{
				Bucket: in.Bucket,
				Key:    obj.Key,
				ETag:   obj.ETag,
				Size:   obj.Size,
			})
			if len(objects) >= BatchLimit {
				break
			}
		}

		if !page.Truncated {
			token = ""
			break
		}
		token = page.NextContinuationToken
	}

	out.BatchSize = len(objects)

	if len(objects) > 0 {
		if err := l.db.InsertObjects(ctx, in.JobID, objects); err != nil {
			return in, fmt.Errorf("lister: insert objects: %w", err)
		}

		enqueued, err := l.submitBatches(ctx, in.JobID, objects)
		if err != nil {
			return in, fmt.Errorf("lister: submit batches: %w", err)
		}
		out.MessagesEnqueued = enqueued
	}

	out.ContinuationToken = token
	out.ObjectsProcessed = in.ObjectsProcessed + len(objects)
	out.Done = token == ""
	return out, nil
}

// submitBatches splits objects into groups of SendBatchSize and submits
// them concurrently over a bounded pool of SubmitWorkers, tallying
// successes. Partial batch failures are logged but do not fail the
// iteration — only DB and listing failures do that.
func (l *Lister) submitBatches(ctx context.Context, jobID string, objects []models.ObjectRef) (int, error) {
	type batch struct {
		idx     int
		entries []bus.SendEntry
	}

	var batches []batch
	for i := 0; i < len(objects); i += SendBatchSize {
		end := i + SendBatchSize
		if end > len(objects) {
			end = len(objects)
		}
		entries := make([]bus.SendEntry, 0, end-i)
		for j, obj := range objects[i:end] {
			body, err := json.Marshal(models.MessageEnvelope{
				JobID:  jobID,
				Bucket: obj.Bucket,
				Key:    obj.Key,
				ETag:   obj.ETag,
			})
			if err != nil {
				return 0, fmt.Errorf("lister: marshal envelope: %w", err)
			}
			entries = append(entries, bus.SendEntry{
				ID:      fmt.Sprintf("%d-%d", i/SendBatchSize, j),
				Body:    body,
				GroupID: obj.Bucket,
			})
		}
		batches = append(batches, batch{idx: i / SendBatchSize, entries: entries})
	}

	sem := make(chan struct{}, SubmitWorkers)
	g, gctx := errgroup.WithContext(ctx)

	var totalSent int
	var mu chan int = make(chan int, len(batches))

	for _, b := range batches {
		b := b
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			result, err := l.bus.SendBatch(gctx, b.entries)
			if err != nil {
				if l.logger != nil {
					l.logger.Warn().Int("batch", b.idx).Err(err).Msg("batch submission failed")
				}
				mu <- 0
				return nil
			}
			if result.Failed > 0 && l.logger != nil {
				l.logger.Warn().Int("batch", b.idx).Int("failed", result.Failed).Msg("partial batch send failure")
			}
			mu <- result.Succeeded
			return nil
		})
	}

	// errgroup.Wait blocks until every Go func returns; since each func
	// above returns nil regardless of per-batch failure, Wait's error
	// is reserved for something outside an individual send (none here).
	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(mu)
	for sent := range mu {
		totalSent += sent
	}
	return totalSent, nil
}
