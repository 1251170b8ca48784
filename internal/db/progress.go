package db

import (
	"context"
	"fmt"
	"time"

	"github.com/stracscan/sentinel/internal/models"
)

// GetJobStats returns status-bucketed counts and total findings for a
// job, zero-filled when the job has no object rows yet.
func (d *DB) GetJobStats(ctx context.Context, jobID string) (models.JobStats, error) {
	var stats models.JobStats
	err := d.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued') AS queued,
			COUNT(*) FILTER (WHERE status = 'processing') AS processing,
			COUNT(*) FILTER (WHERE status = 'succeeded') AS succeeded,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) AS total
		FROM job_objects
		WHERE job_id = $1
	`, jobID).Scan(&stats.Queued, &stats.Processing, &stats.Succeeded, &stats.Failed, &stats.Total)
	if err != nil {
		return models.JobStats{}, fmt.Errorf("db: get job stats: %w", err)
	}

	if err := d.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM findings WHERE job_id = $1
	`, jobID).Scan(&stats.TotalFindings); err != nil {
		return models.JobStats{}, fmt.Errorf("db: get job findings total: %w", err)
	}

	return stats, nil
}

// HasProgressView reports whether the job_progress materialized view
// exists, so callers can decide between cached and real-time reads.
func (d *DB) HasProgressView(ctx context.Context) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_matviews
			WHERE schemaname = 'public' AND matviewname = 'job_progress'
		)
	`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db: check progress view: %w", err)
	}
	return exists, nil
}

// GetCachedProgress reads one job's row from the job_progress
// materialized view, returning (zero, false, nil) when the job has not
// yet been folded into the projection.
func (d *DB) GetCachedProgress(ctx context.Context, jobID string) (models.ProgressView, bool, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT job_id, bucket, prefix, execution_arn, created_at, updated_at,
		       total_objects, queued_count, processing_count, succeeded_count,
		       failed_count, total_findings, progress_percent
		FROM job_progress WHERE job_id = $1
	`, jobID)

	var v models.ProgressView
	err := row.Scan(&v.JobID, &v.Bucket, &v.Prefix, &v.ExecutionArn, &v.CreatedAt, &v.UpdatedAt,
		&v.Total, &v.Queued, &v.Processing, &v.Succeeded, &v.Failed, &v.TotalFindings, &v.ProgressPercent)
	if err != nil {
		if isNoRows(err) {
			return models.ProgressView{}, false, nil
		}
		return models.ProgressView{}, false, fmt.Errorf("db: get cached progress: %w", err)
	}
	return v, true, nil
}

// GetRefreshLog fetches the refresh-log row for the named view.
func (d *DB) GetRefreshLog(ctx context.Context, viewName string) (models.RefreshLog, bool, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT view_name, last_refreshed_at, refresh_duration_ms, total_jobs, total_objects
		FROM materialized_view_refresh_log WHERE view_name = $1
	`, viewName)

	var log models.RefreshLog
	if err := row.Scan(&log.ViewName, &log.LastRefreshedAt, &log.RefreshDurationMs, &log.TotalJobs, &log.TotalObjects); err != nil {
		if isNoRows(err) {
			return models.RefreshLog{}, false, nil
		}
		return models.RefreshLog{}, false, fmt.Errorf("db: get refresh log: %w", err)
	}
	return log, true, nil
}

// RefreshResult is returned by RefreshProgress.
type RefreshResult struct {
	RefreshType  string // "concurrent" or "regular"
	Duration     time.Duration
	TotalJobs    int64
	TotalObjects int64
}

// ErrNoProgressView is a distinguished non-fatal failure: the
// materialized view has not been created yet (migration not run).
var ErrNoProgressView = fmt.Errorf("db: job_progress materialized view does not exist")

// RefreshProgress attempts a non-blocking (CONCURRENTLY) refresh of the
// materialized progress projection; on failure — typically a missing
// unique index on first run — it retries with a blocking refresh, then
// records last-refreshed-at/duration/aggregate stats with upsert
// semantics into the refresh log.
func (d *DB) RefreshProgress(ctx context.Context) (RefreshResult, error) {
	exists, err := d.HasProgressView(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	if !exists {
		return RefreshResult{}, ErrNoProgressView
	}

	start := time.Now()
	refreshType := "concurrent"
	if _, err := d.pool.Exec(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY job_progress"); err != nil {
		refreshType = "regular"
		if _, err := d.pool.Exec(ctx, "REFRESH MATERIALIZED VIEW job_progress"); err != nil {
			return RefreshResult{}, fmt.Errorf("db: refresh progress: %w", err)
		}
	}
	duration := time.Since(start)

	var totalJobs, totalObjects int64
	err = d.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_objects), 0) FROM job_progress
	`).Scan(&totalJobs, &totalObjects)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("db: read progress stats: %w", err)
	}

	durationMs := int(duration.Milliseconds())
	_, err = d.pool.Exec(ctx, `
		INSERT INTO materialized_view_refresh_log (view_name, last_refreshed_at, refresh_duration_ms, total_jobs, total_objects)
		VALUES ('job_progress', NOW(), $1, $2, $3)
		ON CONFLICT (view_name) DO UPDATE SET
			last_refreshed_at = EXCLUDED.last_refreshed_at,
			refresh_duration_ms = EXCLUDED.refresh_duration_ms,
			total_jobs = EXCLUDED.total_jobs,
			total_objects = EXCLUDED.total_objects
	`, durationMs, totalJobs, totalObjects)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("db: upsert refresh log: %w", err)
	}

	return RefreshResult{
		RefreshType:  refreshType,
		Duration:     duration,
		TotalJobs:    totalJobs,
		TotalObjects: totalObjects,
	}, nil
}
