// Package status computes a job's externally reported status by
// fusing the job row, either the cached progress projection or
// real-time counters, and (when available) the durable-loop
// execution's current state.
package status

import (
	"context"
	"fmt"
	"time"

	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/stepfn"
)

// Reader is the slice of the persistence layer the Aggregator depends
// on.
type Reader interface {
	GetJob(ctx context.Context, jobID string) (models.Job, bool, error)
	HasProgressView(ctx context.Context) (bool, error)
	GetCachedProgress(ctx context.Context, jobID string) (models.ProgressView, bool, error)
	GetRefreshLog(ctx context.Context, viewName string) (models.RefreshLog, bool, error)
	GetJobStats(ctx context.Context, jobID string) (models.JobStats, error)
}

const refreshLogView = "job_progress"

// Status is the fully assembled, externally reportable job status.
type Status struct {
	JobID        string
	Bucket       string
	Prefix       string
	ExecutionArn *string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Total           int64
	Queued          int64
	Processing      int64
	Succeeded       int64
	Failed          int64
	TotalFindings   int64
	ProgressPercent float64

	DataSource             string // "cached" or "real_time"
	CacheRefreshedAt       *time.Time
	CacheRefreshDurationMs *int

	ExecutionState string // mirrors stepfn.ExecutionState, empty if no execution tracked
	OverallStatus  string
	StatusMessage  string
}

// Aggregator computes Status values from a Reader and, optionally, a
// durable-loop Driver.
type Aggregator struct {
	db     Reader
	driver stepfn.Driver // nil when no durable-loop driver is configured
}

// New builds an Aggregator. driver may be nil.
func New(db Reader, driver stepfn.Driver) *Aggregator {
	return &Aggregator{db: db, driver: driver}
}

// Get returns (status, true, nil) when jobID exists, or (Status{},
// false, nil) when it doesn't. realTime forces a bypass of the cached
// progress projection even when one exists.
func (a *Aggregator) Get(ctx context.Context, jobID string, realTime bool) (Status, bool, error) {
	hasView, err := a.db.HasProgressView(ctx)
	if err != nil {
		return Status{}, false, fmt.Errorf("status: check progress view: %w", err)
	}

	useCache := hasView && !realTime
	if useCache {
		s, found, err := a.fromCache(ctx, jobID)
		if err != nil {
			return Status{}, false, err
		}
		if found {
			return a.applyExecutionState(ctx, s)
		}
		// Job not folded into the projection yet (very recent job);
		// fall through to the real-time path.
	}

	s, found, err := a.fromRealTime(ctx, jobID)
	if err != nil || !found {
		return Status{}, found, err
	}
	return a.applyExecutionState(ctx, s)
}

func (a *Aggregator) fromCache(ctx context.Context, jobID string) (Status, bool, error) {
	view, found, err := a.db.GetCachedProgress(ctx, jobID)
	if err != nil {
		return Status{}, false, fmt.Errorf("status: get cached progress: %w", err)
	}
	if !found {
		return Status{}, false, nil
	}

	s := Status{
		JobID: view.JobID, Bucket: view.Bucket, Prefix: view.Prefix,
		ExecutionArn: view.ExecutionArn, CreatedAt: view.CreatedAt, UpdatedAt: view.UpdatedAt,
		Total: view.Total, Queued: view.Queued, Processing: view.Processing,
		Succeeded: view.Succeeded, Failed: view.Failed, TotalFindings: view.TotalFindings,
		ProgressPercent: view.ProgressPercent,
		DataSource:      "cached",
	}

	if log, found, err := a.db.GetRefreshLog(ctx, refreshLogView); err == nil && found {
		refreshedAt := log.LastRefreshedAt
		s.CacheRefreshedAt = &refreshedAt
		durationMs := log.RefreshDurationMs
		s.CacheRefreshDurationMs = &durationMs
	}

	return s, true, nil
}

func (a *Aggregator) fromRealTime(ctx context.Context, jobID string) (Status, bool, error) {
	job, found, err := a.db.GetJob(ctx, jobID)
	if err != nil {
		return Status{}, false, fmt.Errorf("status: get job: %w", err)
	}
	if !found {
		return Status{}, false, nil
	}

	stats, err := a.db.GetJobStats(ctx, jobID)
	if err != nil {
		return Status{}, false, fmt.Errorf("status: get job stats: %w", err)
	}

	s := Status{
		JobID: job.JobID, Bucket: job.Bucket, Prefix: job.Prefix,
		ExecutionArn: job.ExecutionArn, CreatedAt: job.CreatedAt, UpdatedAt: job.UpdatedAt,
		Total: stats.Total, Queued: stats.Queued, Processing: stats.Processing,
		Succeeded: stats.Succeeded, Failed: stats.Failed, TotalFindings: stats.TotalFindings,
		ProgressPercent: progressPercent(stats.Total, stats.Succeeded+stats.Failed),
		DataSource:      "real_time",
	}
	return s, true, nil
}

func progressPercent(total, completed int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// applyExecutionState layers the durable-loop execution's state over
// the object-scan counters to produce the overall status/message,
// mirroring the source's exact truth table: a RUNNING execution always
// reports "listing" regardless of counters; a SUCCEEDED execution (or
// no execution at all — sync mode, or one completed long ago) defers
// to the counters; FAILED/TIMED_OUT/ABORTED map directly to a terminal
// non-success status.
func (a *Aggregator) applyExecutionState(ctx context.Context, s Status) (Status, bool, error) {
	var execState stepfn.ExecutionState
	haveExecution := false

	if a.driver != nil && s.ExecutionArn != nil && *s.ExecutionArn != "" {
		exec, err := a.driver.Describe(ctx, *s.ExecutionArn)
		if err == nil {
			execState = exec.State
			haveExecution = true
		} else if err != stepfn.ErrNoExecution {
			return Status{}, false, fmt.Errorf("status: describe execution: %w", err)
		}
	}

	if haveExecution {
		s.ExecutionState = string(execState)
		switch execState {
		case stepfn.ExecutionRunning:
			s.OverallStatus = "listing"
			s.StatusMessage = "durable loop is listing objects"
		case stepfn.ExecutionSucceeded:
			s.OverallStatus, s.StatusMessage = completionStatus(s.Total, s.Succeeded+s.Failed)
		case stepfn.ExecutionFailed:
			s.OverallStatus = "failed"
			s.StatusMessage = "durable loop execution failed"
		case stepfn.ExecutionTimedOut:
			s.OverallStatus = "failed"
			s.StatusMessage = "durable loop execution timed out"
		case stepfn.ExecutionAborted:
			s.OverallStatus = "aborted"
			s.StatusMessage = "durable loop execution was aborted"
		}
	} else {
		s.OverallStatus, s.StatusMessage = completionStatus(s.Total, s.Succeeded+s.Failed)
	}

	return s, true, nil
}

func completionStatus(total, completed int64) (string, string) {
	switch {
	case total == 0:
		return "completed", "no objects found to scan"
	case completed >= total:
		return "completed", "all objects scanned"
	default:
		return "processing", fmt.Sprintf("scanning objects (%d/%d)", completed, total)
	}
}
