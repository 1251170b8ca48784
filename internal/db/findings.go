package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stracscan/sentinel/internal/detector"
	"github.com/stracscan/sentinel/internal/models"
)

// InsertFindings batch-inserts detector findings with conflict-do-nothing
// on the (bucket, key, etag, detector, byte_offset) uniqueness key.
// Missing context defaults to empty string.
//
// Preserves the source's return-value semantics (an explicit choice
// recorded for the Open Question on insertFindings' return value): it
// returns the count of findings offered to the batch, not the count
// actually inserted after conflict-do-nothing collapses duplicates.
// Two identical calls therefore both report len(findings), even though
// the second call inserts zero new rows — callers needing the true
// insert count should compare getJobStats before and after.
func (d *DB) InsertFindings(ctx context.Context, findings []detector.Finding, jobID, bucket, key, etag string) (int, error) {
	if len(findings) == 0 {
		return 0, nil
	}

	err := d.withTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, f := range findings {
			batch.Queue(`
				INSERT INTO findings (job_id, bucket, key, etag, detector, masked_match, context, byte_offset, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
				ON CONFLICT (bucket, key, etag, detector, byte_offset) DO NOTHING
			`, jobID, bucket, key, etag, string(f.Kind), f.MaskedMatch, f.Context, f.ByteOffset)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range findings {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("db: insert finding: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(findings), nil
}

// Pagination is a sum type modeling the findings endpoint's two
// mutually-exclusive read modes, per the design note preferring this
// shape over two nullable fields.
type Pagination struct {
	cursor *int64
	offset *int64
}

// Cursor builds a cursor-mode pagination value: return rows with
// id < id, ordered by id descending.
func Cursor(id int64) Pagination { return Pagination{cursor: &id} }

// Offset builds an offset-mode pagination value: order by created_at
// descending and apply limit/offset.
func Offset(n int64) Pagination { return Pagination{offset: &n} }

// IsCursor reports whether this value uses cursor mode.
func (p Pagination) IsCursor() bool { return p.cursor != nil }

// FindingFilter narrows getFindings by job, bucket, and key-prefix.
type FindingFilter struct {
	JobID      string
	Bucket     string
	KeyPrefix  string
}

// FindingsPage is the result of getFindings: the page of rows plus the
// total count computed under the same filter.
type FindingsPage struct {
	Findings []models.Finding
	Total    int64
}

// GetFindings supports filter by job, bucket, and key-prefix, and
// exactly one pagination mode per call (enforced by the Pagination sum
// type itself, so there is no runtime branch on "which field is set").
func (d *DB) GetFindings(ctx context.Context, filter FindingFilter, page Pagination, limit int) (FindingsPage, error) {
	if limit <= 0 {
		limit = 100
	}

	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.JobID != "" {
		conditions = append(conditions, "job_id = "+arg(filter.JobID))
	}
	if filter.Bucket != "" {
		conditions = append(conditions, "bucket = "+arg(filter.Bucket))
	}
	if filter.KeyPrefix != "" {
		conditions = append(conditions, "key LIKE "+arg(filter.KeyPrefix+"%"))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM findings " + where
	if err := d.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return FindingsPage{}, fmt.Errorf("db: count findings: %w", err)
	}

	var query string
	if page.IsCursor() {
		cursorCond := "id < " + arg(*page.cursor)
		fullWhere := where
		if fullWhere == "" {
			fullWhere = "WHERE " + cursorCond
		} else {
			fullWhere += " AND " + cursorCond
		}
		query = fmt.Sprintf(`
			SELECT id, job_id, bucket, key, etag, detector, masked_match, context, byte_offset, created_at
			FROM findings %s ORDER BY id DESC LIMIT %s
		`, fullWhere, arg(limit))
	} else {
		offset := int64(0)
		if page.offset != nil {
			offset = *page.offset
		}
		query = fmt.Sprintf(`
			SELECT id, job_id, bucket, key, etag, detector, masked_match, context, byte_offset, created_at
			FROM findings %s ORDER BY created_at DESC LIMIT %s OFFSET %s
		`, where, arg(limit), arg(offset))
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return FindingsPage{}, fmt.Errorf("db: query findings: %w", err)
	}
	defer rows.Close()

	var out []models.Finding
	for rows.Next() {
		var f models.Finding
		if err := rows.Scan(&f.ID, &f.JobID, &f.Bucket, &f.Key, &f.ETag, &f.Detector, &f.MaskedMatch, &f.Context, &f.ByteOffset, &f.CreatedAt); err != nil {
			return FindingsPage{}, fmt.Errorf("db: scan finding: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return FindingsPage{}, fmt.Errorf("db: iterate findings: %w", err)
	}

	return FindingsPage{Findings: out, Total: total}, nil
}
