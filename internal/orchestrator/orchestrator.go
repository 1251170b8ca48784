// Package orchestrator implements job creation: mint a job id, start
// the durable listing/enqueue loop (either via an external driver or,
// when none is configured, synchronously in-process up to a bounded
// object count), and persist the resulting job row.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/stracscan/sentinel/internal/common"
	"github.com/stracscan/sentinel/internal/lister"
	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/stepfn"
)

// SyncObjectLimit bounds the in-process fallback loop, mirroring the
// source's Lambda-timeout-driven ceiling on synchronous listing.
const SyncObjectLimit = 200000

// JobPersister is the slice of the persistence layer the Orchestrator
// depends on.
type JobPersister interface {
	InsertJob(ctx context.Context, job models.Job) error
	GetJob(ctx context.Context, jobID string) (models.Job, bool, error)
}

// Result is returned by CreateJob.
type Result struct {
	JobID            string
	Bucket           string
	Prefix           string
	ExecutionArn     string
	Status           string // "listing" (async) or "queued" (sync fallback complete)
	Async            bool
	TotalObjects     int
	MessagesEnqueued int
}

// Orchestrator creates scan jobs, preferring an external durable-loop
// driver when one is configured and falling back to an in-process
// bounded loop otherwise.
type Orchestrator struct {
	db     JobPersister
	driver stepfn.Driver // nil means no external driver configured
	lister *lister.Lister
	logger arbor.ILogger

	syncObjectLimit int
}

// New builds an Orchestrator. driver may be nil to force the
// synchronous fallback path regardless of configuration.
func New(db JobPersister, driver stepfn.Driver, l *lister.Lister, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{db: db, driver: driver, lister: l, logger: logger, syncObjectLimit: SyncObjectLimit}
}

// CreateJob mints a job id and starts processing for bucket/prefix. If
// a Driver is configured, it starts an external execution first (so the
// job row can record the execution ARN) and returns immediately with
// Async=true; the Lister runs out-of-band via that external loop. If no
// Driver is configured, it runs the Lister synchronously in this call,
// looping until done or until syncObjectLimit objects have been listed.
func (o *Orchestrator) CreateJob(ctx context.Context, bucket, prefix string) (Result, error) {
	jobID := common.NewJobID()

	if o.driver != nil {
		return o.createAsync(ctx, jobID, bucket, prefix)
	}
	return o.createSync(ctx, jobID, bucket, prefix)
}

func (o *Orchestrator) createAsync(ctx context.Context, jobID, bucket, prefix string) (Result, error) {
	input, err := json.Marshal(lister.State{JobID: jobID, Bucket: bucket, Prefix: prefix})
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: marshal execution input: %w", err)
	}

	arn, err := o.driver.Start(ctx, "scan-"+jobID, input)
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: start execution: %w", err)
	}
	if o.logger != nil {
		o.logger.Info().Str("job_id", jobID).Str("execution_arn", arn).Msg("started durable listing loop")
	}

	job := models.Job{JobID: jobID, Bucket: bucket, Prefix: prefix, ExecutionArn: &arn}
	if err := o.db.InsertJob(ctx, job); err != nil {
		// The execution is already running; a failed job-row insert here
		// degrades tracking, not correctness, so this is logged rather
		// than surfaced as a hard failure to the caller.
		if o.logger != nil {
			o.logger.Warn().Err(err).Str("job_id", jobID).Str("execution_arn", arn).Msg("execution started but job record creation failed")
		}
	}

	return Result{
		JobID:        jobID,
		Bucket:       bucket,
		Prefix:       prefix,
		ExecutionArn: arn,
		Status:       "listing",
		Async:        true,
	}, nil
}

func (o *Orchestrator) createSync(ctx context.Context, jobID, bucket, prefix string) (Result, error) {
	job := models.Job{JobID: jobID, Bucket: bucket, Prefix: prefix}
	if err := o.db.InsertJob(ctx, job); err != nil {
		return Result{}, fmt.Errorf("orchestrator: insert job: %w", err)
	}

	state := lister.State{JobID: jobID, Bucket: bucket, Prefix: prefix}
	totalObjects := 0
	messagesEnqueued := 0

	for {
		out, err := o.lister.Run(ctx, state)
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: list and enqueue: %w", err)
		}
		totalObjects += out.BatchSize
		messagesEnqueued += out.MessagesEnqueued

		if out.Done || out.ObjectsProcessed >= o.syncObjectLimit {
			break
		}
		state = out
	}

	if o.logger != nil {
		o.logger.Info().Str("job_id", jobID).Int("total_objects", totalObjects).Int("messages_enqueued", messagesEnqueued).Msg("synchronous job creation complete")
	}

	return Result{
		JobID:            jobID,
		Bucket:           bucket,
		Prefix:           prefix,
		Status:           "queued",
		TotalObjects:     totalObjects,
		MessagesEnqueued: messagesEnqueued,
	}, nil
}
