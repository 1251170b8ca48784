package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stracscan/sentinel/internal/models"
)

// InsertObjects batch-inserts JobObject rows with status=queued and
// conflict-do-nothing on the (job_id, bucket, key, etag) primary key,
// so the Lister can safely re-run the same page after a crash.
func (d *DB) InsertObjects(ctx context.Context, jobID string, objects []models.ObjectRef) error {
	if len(objects) == 0 {
		return nil
	}

	return d.withTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, obj := range objects {
			batch.Queue(`
				INSERT INTO job_objects (job_id, bucket, key, etag, status, updated_at)
				VALUES ($1, $2, $3, $4, 'queued', NOW())
				ON CONFLICT (job_id, bucket, key, etag) DO NOTHING
			`, jobID, obj.Bucket, obj.Key, obj.ETag)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range objects {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("db: insert object: %w", err)
			}
		}
		return nil
	})
}

// UpdateObjectStatus performs a targeted UPDATE on one JobObject row,
// returning true iff at least one row matched.
func (d *DB) UpdateObjectStatus(ctx context.Context, jobID, bucket, key, etag string, status models.ObjectStatus, lastError *string) (bool, error) {
	var matched bool
	err := d.withTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE job_objects
			SET status = $1, last_error = $2, updated_at = NOW()
			WHERE job_id = $3 AND bucket = $4 AND key = $5 AND etag = $6
		`, status, lastError, jobID, bucket, key, etag)
		if err != nil {
			return fmt.Errorf("db: update object status: %w", err)
		}
		matched = tag.RowsAffected() > 0
		return nil
	})
	return matched, err
}
