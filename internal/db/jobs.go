package db

import (
	"context"
	"fmt"

	"github.com/stracscan/sentinel/internal/models"
)

// InsertJob persists a freshly minted job row. Called once per scan
// request by the Job Orchestrator, including the execution reference
// when the durable loop already started.
func (d *DB) InsertJob(ctx context.Context, job models.Job) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO jobs (job_id, bucket, prefix, execution_arn, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`, job.JobID, job.Bucket, job.Prefix, job.ExecutionArn)
	if err != nil {
		return fmt.Errorf("db: insert job: %w", err)
	}
	return nil
}

// GetJob fetches the job row, returning (models.Job{}, false, nil) if
// no row matches.
func (d *DB) GetJob(ctx context.Context, jobID string) (models.Job, bool, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT job_id, bucket, prefix, execution_arn, created_at, updated_at
		FROM jobs WHERE job_id = $1
	`, jobID)

	var job models.Job
	if err := row.Scan(&job.JobID, &job.Bucket, &job.Prefix, &job.ExecutionArn, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if isNoRows(err) {
			return models.Job{}, false, nil
		}
		return models.Job{}, false, fmt.Errorf("db: get job: %w", err)
	}
	return job, true, nil
}
