// Package refresher keeps the cached progress projection warm, either
// on a cron schedule for long-running deployments or as a one-shot
// call for an invocation-per-run deployment.
package refresher

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/stracscan/sentinel/internal/db"
)

// ProgressRefresher is the slice of the persistence layer the
// Refresher depends on. *db.DB satisfies it.
type ProgressRefresher interface {
	RefreshProgress(ctx context.Context) (db.RefreshResult, error)
}

// Refresher periodically calls RefreshProgress against the database.
type Refresher struct {
	db     ProgressRefresher
	logger arbor.ILogger
	cron   *cron.Cron
}

// New builds a Refresher bound to database.
func New(database ProgressRefresher, logger arbor.ILogger) *Refresher {
	return &Refresher{db: database, logger: logger}
}

// RunOnce performs a single refresh, suitable for a one-shot CLI
// invocation (e.g. a scheduled task runner instead of an in-process
// cron). ErrNoProgressView is returned unwrapped so callers can choose
// to treat "migration not yet run" as a soft no-op.
func (r *Refresher) RunOnce(ctx context.Context) (db.RefreshResult, error) {
	result, err := r.db.RefreshProgress(ctx)
	if err != nil {
		if err == db.ErrNoProgressView {
			if r.logger != nil {
				r.logger.Warn().Msg("job_progress materialized view does not exist, skipping refresh")
			}
			return db.RefreshResult{}, err
		}
		return db.RefreshResult{}, fmt.Errorf("refresher: refresh progress: %w", err)
	}

	if r.logger != nil {
		r.logger.Info().
			Str("refresh_type", result.RefreshType).
			Int64("total_jobs", result.TotalJobs).
			Int64("total_objects", result.TotalObjects).
			Int64("duration_ms", result.Duration.Milliseconds()).
			Msg("refreshed job_progress materialized view")
	}
	return result, nil
}

// Schedule starts an in-process cron job running the given spec (e.g.
// "@every 1m"), logging but not propagating refresh errors since a
// missed refresh is recovered by the next tick. Call Stop to halt it.
func (r *Refresher) Schedule(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(ctx); err != nil && r.logger != nil {
			r.logger.Error().Err(err).Msg("scheduled refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("refresher: schedule: %w", err)
	}
	r.cron = c
	c.Start()
	return nil
}

// Stop halts the scheduled cron job, blocking until the current
// execution (if any) completes.
func (r *Refresher) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
