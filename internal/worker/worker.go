// Package worker implements the scan pipeline: long-poll the bus for
// enqueued objects, fetch and inspect each one against the object
// store, and persist findings and status. Every step returns an
// explicit outcome rather than an error string, so callers can branch
// on succeeded/failed/skipped without parsing messages.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stracscan/sentinel/internal/bus"
	"github.com/stracscan/sentinel/internal/common"
	"github.com/stracscan/sentinel/internal/detector"
	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/store"
)

// Persister is the slice of the persistence layer the Worker depends
// on. *db.DB satisfies it; fake.go provides an in-memory stand-in for
// tests that never need a real PostgreSQL connection.
type Persister interface {
	UpdateObjectStatus(ctx context.Context, jobID, bucket, key, etag string, status models.ObjectStatus, lastError *string) (bool, error)
	InsertFindings(ctx context.Context, findings []detector.Finding, jobID, bucket, key, etag string) (int, error)
}

// Outcome is the terminal classification of processing one envelope.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"

	// OutcomeRejected marks a message whose envelope could not even be
	// parsed. It is never acknowledged: the bus's redrive policy, not
	// this worker, decides a poison message's fate.
	OutcomeRejected Outcome = "rejected"
)

var textExtensions = map[string]bool{
	".txt":  true,
	".csv":  true,
	".json": true,
	".log":  true,
}

// Config tunes the worker's concurrency and file-admission gate.
type Config struct {
	MaxWorkers           int
	MaxFileSizeMB        int
	MaxMessages          int
	WaitSeconds          int
	DetectorMaxPerKind   int
	DetectorContextChars int

	// S3RequestsPerSecond caps the rate of Head/Get calls against the
	// object store, shared across the whole worker pool. Zero disables
	// the limiter, letting the SDK's own retry/backoff handle throttling.
	S3RequestsPerSecond int
}

// DefaultConfig mirrors the source's defaults.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:           20,
		MaxFileSizeMB:        100,
		MaxMessages:          10,
		WaitSeconds:          20,
		DetectorMaxPerKind:   detector.DefaultMaxPerKind,
		DetectorContextChars: detector.DefaultContextChars,
	}
}

func (c Config) maxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Result is one envelope's processing outcome, carrying the receipt
// handle so the caller can decide what to delete from the bus.
type Result struct {
	Bucket        string
	Key           string
	Outcome       Outcome
	FindingsCount int
	Err           error
	ReceiptHandle string
}

// Worker consumes envelopes from the Bus, fetches objects from the
// Store, detects sensitive data, and persists results via DB.
type Worker struct {
	store   store.Store
	bus     bus.Bus
	db      Persister
	cfg     Config
	logger  arbor.ILogger
	limiter *rate.Limiter
}

// New builds a Worker from its collaborators.
func New(s store.Store, b bus.Bus, persister Persister, cfg Config, logger arbor.ILogger) *Worker {
	w := &Worker{store: s, bus: b, db: persister, cfg: cfg, logger: logger}
	if cfg.S3RequestsPerSecond > 0 {
		w.limiter = rate.NewLimiter(rate.Limit(cfg.S3RequestsPerSecond), cfg.S3RequestsPerSecond)
	}
	return w
}

// waitForQuota blocks until the shared object-store rate limiter admits
// the next request; a no-op when no limit is configured.
func (w *Worker) waitForQuota(ctx context.Context) error {
	if w.limiter == nil {
		return nil
	}
	return w.limiter.Wait(ctx)
}

// shouldProcessFile gates on size and the fixed set of supported text
// extensions; anything else is skipped, never failed.
func shouldProcessFile(key string, size int64, maxBytes int64) bool {
	if size > maxBytes {
		return false
	}
	lower := strings.ToLower(key)
	for ext := range textExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// decodeText mirrors the source's UTF-8-then-Latin-1 fallback: valid
// UTF-8 is kept as-is; otherwise every byte is reinterpreted as a
// Latin-1 code point (always succeeds, since Latin-1 is a total
// mapping over a single byte), and only a strict subset of truly
// undecodable input (never reached via Latin-1) would fail.
func decodeText(content []byte) (string, bool) {
	if utf8.Valid(content) {
		return string(content), true
	}
	var b strings.Builder
	b.Grow(len(content))
	for _, c := range content {
		b.WriteRune(rune(c))
	}
	return b.String(), true
}

// ProcessEnvelope runs the eight-step per-object pipeline: mark
// processing, HEAD for metadata, gate by extension/size, GET the body,
// decode it, detect sensitive data, persist findings, then mark the
// terminal status. Any failure at the HEAD or GET step marks the
// object failed and returns OutcomeFailed; an admission-gate miss or
// undecodable body marks the object succeeded with zero findings and
// returns OutcomeSkipped, matching the source's "skip, don't fail"
// treatment of those cases.
func (w *Worker) ProcessEnvelope(ctx context.Context, env models.MessageEnvelope) Result {
	res := Result{Bucket: env.Bucket, Key: env.Key}

	if _, err := w.db.UpdateObjectStatus(ctx, env.JobID, env.Bucket, env.Key, env.ETag, models.StatusProcessing, nil); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("worker: mark processing: %w", err)
		return res
	}

	if err := w.waitForQuota(ctx); err != nil {
		return w.fail(ctx, env, fmt.Errorf("worker: rate limit wait: %w", err))
	}
	meta, err := w.store.Head(ctx, env.Bucket, env.Key)
	if err != nil {
		return w.fail(ctx, env, fmt.Errorf("worker: head object: %w", err))
	}

	if !shouldProcessFile(env.Key, meta.Size, w.cfg.maxFileSizeBytes()) {
		return w.skip(ctx, env, "unsupported extension or file too large", 0)
	}

	if err := w.waitForQuota(ctx); err != nil {
		return w.fail(ctx, env, fmt.Errorf("worker: rate limit wait: %w", err))
	}
	body, err := w.store.Get(ctx, env.Bucket, env.Key)
	if err != nil {
		return w.fail(ctx, env, fmt.Errorf("worker: get object: %w", err))
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return w.fail(ctx, env, fmt.Errorf("worker: read object body: %w", err))
	}

	text, ok := decodeText(buf.Bytes())
	if !ok {
		return w.skip(ctx, env, "could not decode file", 0)
	}

	findings := detector.Detect([]byte(text), w.cfg.DetectorMaxPerKind, w.cfg.DetectorContextChars)

	findingsCount := 0
	if len(findings) > 0 {
		findingsCount, err = w.db.InsertFindings(ctx, findings, env.JobID, env.Bucket, env.Key, env.ETag)
		if err != nil {
			return w.fail(ctx, env, fmt.Errorf("worker: insert findings: %w", err))
		}
	}

	if _, err := w.db.UpdateObjectStatus(ctx, env.JobID, env.Bucket, env.Key, env.ETag, models.StatusSucceeded, nil); err != nil {
		return w.fail(ctx, env, fmt.Errorf("worker: mark succeeded: %w", err))
	}

	res.Outcome = OutcomeSucceeded
	res.FindingsCount = findingsCount
	return res
}

func (w *Worker) fail(ctx context.Context, env models.MessageEnvelope, cause error) Result {
	msg := cause.Error()
	if _, err := w.db.UpdateObjectStatus(ctx, env.JobID, env.Bucket, env.Key, env.ETag, models.StatusFailed, &msg); err != nil && w.logger != nil {
		w.logger.Error().Err(err).Str("bucket", env.Bucket).Str("key", env.Key).Msg("failed to mark object failed")
	}
	return Result{Bucket: env.Bucket, Key: env.Key, Outcome: OutcomeFailed, Err: cause}
}

func (w *Worker) skip(ctx context.Context, env models.MessageEnvelope, reason string, findingsCount int) Result {
	if _, err := w.db.UpdateObjectStatus(ctx, env.JobID, env.Bucket, env.Key, env.ETag, models.StatusSucceeded, &reason); err != nil && w.logger != nil {
		w.logger.Warn().Err(err).Str("bucket", env.Bucket).Str("key", env.Key).Msg("failed to mark object skipped")
	}
	return Result{Bucket: env.Bucket, Key: env.Key, Outcome: OutcomeSkipped, FindingsCount: findingsCount}
}

// BatchResult pairs one Message with the Result of processing it, so
// callers can decide per-message whether to acknowledge.
type BatchResult struct {
	Message bus.Message
	Result  Result
}

// ProcessBatch parses each message's envelope and fans out processing
// over a bounded pool of w.cfg.MaxWorkers. An unparseable message is
// reported as OutcomeRejected, never OutcomeFailed: the caller must not
// acknowledge it (the caller decides ack policy from Outcome).
func (w *Worker) ProcessBatch(ctx context.Context, messages []bus.Message) []BatchResult {
	results := make([]BatchResult, len(messages))
	sem := make(chan struct{}, w.cfg.workers())

	g, gctx := errgroup.WithContext(ctx)
	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			// A panic in one message's processing must not take down
			// the whole batch; log it, write a crash file for
			// post-mortem, and report that one message as failed.
			defer func() {
				if r := recover(); r != nil {
					stackTrace := common.GetStackTrace()
					if w.logger != nil {
						w.logger.Error().
							Str("panic", fmt.Sprintf("%v", r)).
							Str("stack", stackTrace).
							Str("receipt_handle", msg.ReceiptHandle).
							Msg("recovered from panic processing message")
					}
					common.WriteCrashFile(r, stackTrace)
					results[i] = BatchResult{
						Message: msg,
						Result:  Result{Outcome: OutcomeFailed, Err: fmt.Errorf("worker: recovered panic: %v", r), ReceiptHandle: msg.ReceiptHandle},
					}
				}
			}()

			var env models.MessageEnvelope
			if err := json.Unmarshal(msg.Body, &env); err != nil {
				results[i] = BatchResult{
					Message: msg,
					Result:  Result{Outcome: OutcomeRejected, Err: fmt.Errorf("worker: unmarshal envelope: %w", err), ReceiptHandle: msg.ReceiptHandle},
				}
				return nil
			}

			res := w.ProcessEnvelope(gctx, env)
			res.ReceiptHandle = msg.ReceiptHandle
			results[i] = BatchResult{Message: msg, Result: res}
			return nil
		})
	}
	_ = g.Wait() // per-message errors are captured in results, never propagated

	return results
}

func (c Config) workers() int {
	if c.MaxWorkers <= 0 {
		return DefaultConfig().MaxWorkers
	}
	return c.MaxWorkers
}

// Run is the long-poll consume loop: receive up to MaxMessages with a
// WaitSeconds long poll, process the batch, then delete from the bus
// every message whose outcome is terminal (succeeded, failed, or
// skipped). A rejected (unparseable) envelope is left on the bus
// unacknowledged, so the redrive policy handles the poison message
// instead of this worker silently dropping it. It returns when ctx is
// cancelled, the caller's cue for cooperative shutdown.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := w.bus.Receive(ctx, w.cfg.maxMessages(), w.cfg.waitSeconds())
		if err != nil {
			if w.logger != nil {
				w.logger.Error().Err(err).Msg("receive failed")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if len(messages) == 0 {
			continue
		}

		if w.logger != nil {
			w.logger.Info().Int("count", len(messages)).Msg("received messages")
		}

		// The received batch runs to completion even if ctx is cancelled
		// meanwhile; cancellation is observed before the next receive.
		batchCtx := context.WithoutCancel(ctx)
		results := w.ProcessBatch(batchCtx, messages)

		var toDelete []string
		var succeeded, failed, rejected, totalFindings int
		for _, r := range results {
			switch r.Result.Outcome {
			case OutcomeSucceeded:
				succeeded++
				totalFindings += r.Result.FindingsCount
				toDelete = append(toDelete, r.Result.ReceiptHandle)
			case OutcomeSkipped:
				toDelete = append(toDelete, r.Result.ReceiptHandle)
			case OutcomeFailed:
				failed++
				toDelete = append(toDelete, r.Result.ReceiptHandle)
			case OutcomeRejected:
				rejected++
				if w.logger != nil {
					w.logger.Warn().Err(r.Result.Err).Msg("rejected unparseable envelope, leaving for redrive policy")
				}
			}
		}

		if w.logger != nil {
			w.logger.Info().Int("succeeded", succeeded).Int("failed", failed).Int("rejected", rejected).Int("findings", totalFindings).Msg("batch complete")
		}

		if len(toDelete) > 0 {
			if err := w.bus.DeleteBatch(batchCtx, toDelete); err != nil && w.logger != nil {
				w.logger.Warn().Err(err).Msg("failed to delete processed messages")
			}
		}
	}
}

func (c Config) maxMessages() int {
	if c.MaxMessages <= 0 {
		return DefaultConfig().MaxMessages
	}
	return c.MaxMessages
}

func (c Config) waitSeconds() int {
	if c.WaitSeconds <= 0 {
		return DefaultConfig().WaitSeconds
	}
	return c.WaitSeconds
}
