// Package models holds the domain types shared across the scanner's
// components: jobs, the objects scheduled within them, the findings a
// worker produces, and the cached progress projection the refresher
// maintains.
package models

import "time"

// ObjectStatus is the lifecycle state of a JobObject. It only ever
// advances forward; a succeeded or failed row is terminal.
type ObjectStatus string

const (
	StatusQueued     ObjectStatus = "queued"
	StatusProcessing ObjectStatus = "processing"
	StatusSucceeded  ObjectStatus = "succeeded"
	StatusFailed     ObjectStatus = "failed"
)

// Job is one user-initiated scan over a bucket/prefix, the root of all
// work performed on its behalf. It is created once and never mutated
// except for UpdatedAt and the execution reference.
type Job struct {
	JobID         string    `db:"job_id" json:"job_id"`
	Bucket        string    `db:"bucket" json:"bucket"`
	Prefix        string    `db:"prefix" json:"prefix"`
	ExecutionArn  *string   `db:"execution_arn" json:"execution_arn,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// JobObject is a single object version scheduled for scanning within a
// job. Its composite key is (job, bucket, key, etag); a re-listed
// object with a different etag produces a new row.
type JobObject struct {
	JobID     string       `db:"job_id" json:"job_id"`
	Bucket    string       `db:"bucket" json:"bucket"`
	Key       string       `db:"key" json:"key"`
	ETag      string       `db:"etag" json:"etag"`
	Status    ObjectStatus `db:"status" json:"status"`
	LastError *string      `db:"last_error" json:"last_error,omitempty"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Finding is a single detection within a JobObject. The tuple
// (bucket, key, etag, detector, byte_offset) is unique; a duplicate
// insert silently collapses via conflict-do-nothing.
type Finding struct {
	ID          int64     `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"job_id"`
	Bucket      string    `db:"bucket" json:"bucket"`
	Key         string    `db:"key" json:"key"`
	ETag        string    `db:"etag" json:"etag"`
	Detector    string    `db:"detector" json:"detector"`
	MaskedMatch string    `db:"masked_match" json:"masked_match"`
	Context     string    `db:"context" json:"context"`
	ByteOffset  int64     `db:"byte_offset" json:"byte_offset"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// JobStats is the status-bucketed counters and findings total for a
// job, zero-filled when the job has no rows yet.
type JobStats struct {
	Queued        int64 `db:"queued" json:"queued"`
	Processing    int64 `db:"processing" json:"processing"`
	Succeeded     int64 `db:"succeeded" json:"succeeded"`
	Failed        int64 `db:"failed" json:"failed"`
	Total         int64 `db:"total" json:"total"`
	TotalFindings int64 `db:"total_findings" json:"total_findings"`
}

// ProgressView is the derived, cached projection keyed by job, refreshed
// out of band by the Refresher. Readers must tolerate staleness bounded
// by the refresh interval.
type ProgressView struct {
	JobID            string    `db:"job_id" json:"job_id"`
	Bucket           string    `db:"bucket" json:"bucket"`
	Prefix           string    `db:"prefix" json:"prefix"`
	ExecutionArn     *string   `db:"execution_arn" json:"execution_arn,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
	Total            int64     `db:"total" json:"total"`
	Queued           int64     `db:"queued" json:"queued"`
	Processing       int64     `db:"processing" json:"processing"`
	Succeeded        int64     `db:"succeeded" json:"succeeded"`
	Failed           int64     `db:"failed" json:"failed"`
	TotalFindings    int64     `db:"total_findings" json:"total_findings"`
	ProgressPercent  float64   `db:"progress_percent" json:"progress_percent"`
}

// RefreshLog is the singleton-per-view row recording the outcome of the
// last materialized-view refresh.
type RefreshLog struct {
	ViewName          string    `db:"view_name" json:"view_name"`
	LastRefreshedAt   time.Time `db:"last_refreshed_at" json:"last_refreshed_at"`
	RefreshDurationMs int       `db:"refresh_duration_ms" json:"refresh_duration_ms"`
	TotalJobs         int64     `db:"total_jobs" json:"total_jobs"`
	TotalObjects      int64     `db:"total_objects" json:"total_objects"`
}

// MessageEnvelope is the on-wire record bound to a message-bus entry.
// Grouping key is the bucket, for fair scheduling across tenants.
type MessageEnvelope struct {
	JobID  string `json:"job_id"`
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	ETag   string `json:"etag"`
}

// ObjectRef is a listed object awaiting insertion and enqueue; it is
// the Lister's unit of output before it becomes a JobObject row.
type ObjectRef struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}
