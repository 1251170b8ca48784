// Package api implements the HTTP query surface: trigger a scan job,
// read its status, and page through findings. Handlers are thin:
// decode/validate the request, delegate to the orchestrator/status/db
// collaborators, and encode the response as JSON.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ternarybob/arbor"

	"github.com/stracscan/sentinel/internal/db"
	"github.com/stracscan/sentinel/internal/orchestrator"
	"github.com/stracscan/sentinel/internal/status"
)

// FindingsReader is the slice of the persistence layer the results
// endpoint depends on.
type FindingsReader interface {
	GetFindings(ctx context.Context, filter db.FindingFilter, page db.Pagination, limit int) (db.FindingsPage, error)
}

// JobCreator is the slice of the orchestrator the /scan endpoint
// depends on.
type JobCreator interface {
	CreateJob(ctx context.Context, bucket, prefix string) (orchestrator.Result, error)
}

// StatusReader is the slice of the status aggregator the /jobs/{id}
// endpoint depends on.
type StatusReader interface {
	Get(ctx context.Context, jobID string, realTime bool) (status.Status, bool, error)
}

// API wires the HTTP surface to its collaborators and builds the chi
// router.
type API struct {
	jobs     JobCreator
	statuses StatusReader
	findings FindingsReader
	logger   arbor.ILogger
}

// New builds an API from its collaborators.
func New(jobs JobCreator, statuses StatusReader, findings FindingsReader, logger arbor.ILogger) *API {
	return &API{jobs: jobs, statuses: statuses, findings: findings, logger: logger}
}

// Router builds the chi router: POST /scan, GET /jobs/{id}, GET
// /results, with CORS preflight handled for every route and a 404 JSON
// body for anything unmatched.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(a.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		MaxAge:           300,
	}))

	r.Post("/scan", a.handleScan)
	r.Get("/jobs/{jobID}", a.handleJobStatus)
	r.Get("/results", a.handleResults)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	return r
}

func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if a.logger != nil {
			a.logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("http request")
		}
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

type scanRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// handleScan creates a new scan job; bucket is required, prefix
// optional. A missing or malformed body is tolerated as an empty
// request, which then fails the bucket-required check below rather
// than a generic decode error.
func (a *API) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Bucket == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bucket is required"})
		return
	}

	result, err := a.jobs.CreateJob(r.Context(), req.Bucket, req.Prefix)
	if err != nil {
		if a.logger != nil {
			a.logger.Error().Err(err).Str("bucket", req.Bucket).Msg("failed to create scan job")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleJobStatus reports a job's status, defaulting to cached data
// unless ?real_time=true|1|yes is set.
func (a *API) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	realTime := false
	switch strings.ToLower(r.URL.Query().Get("real_time")) {
	case "true", "1", "yes":
		realTime = true
	}

	s, found, err := a.statuses.Get(r.Context(), jobID, realTime)
	if err != nil {
		if a.logger != nil {
			a.logger.Error().Err(err).Str("job_id", jobID).Msg("failed to get job status")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}

	writeJSON(w, http.StatusOK, s)
}

type resultsResponse struct {
	Findings   []findingView `json:"findings"`
	Total      int64         `json:"total"`
	Limit      int           `json:"limit"`
	HasMore    bool          `json:"has_more"`
	Cursor     string        `json:"cursor,omitempty"`
	NextCursor string        `json:"next_cursor,omitempty"`
	Offset     *int64        `json:"offset,omitempty"`
}

type findingView struct {
	ID          int64     `json:"id"`
	JobID       string    `json:"job_id"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Detector    string    `json:"detector"`
	MaskedMatch string    `json:"masked_match"`
	Context     string    `json:"context"`
	ByteOffset  int64     `json:"byte_offset"`
	CreatedAt   time.Time `json:"created_at"`
}

// handleResults pages through findings, filterable by job_id, bucket,
// and key (used as a prefix filter). It supports cursor-based
// pagination (preferred) and falls back to offset-based pagination
// when no cursor is supplied.
func (a *API) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 100
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	filter := db.FindingFilter{
		JobID:     q.Get("job_id"),
		Bucket:    q.Get("bucket"),
		KeyPrefix: q.Get("key"),
	}

	cursorParam := q.Get("cursor")
	var page db.Pagination
	usingCursor := false
	if cursorParam != "" {
		if id, err := strconv.ParseInt(cursorParam, 10, 64); err == nil {
			page = db.Cursor(id)
			usingCursor = true
		}
		// an invalid cursor is ignored, matching the source's behavior of
		// silently falling back to offset pagination.
	}
	var offsetVal int64
	if !usingCursor {
		if v := q.Get("offset"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				offsetVal = parsed
			}
		}
		page = db.Offset(offsetVal)
	}

	result, err := a.findings.GetFindings(r.Context(), filter, page, limit)
	if err != nil {
		if a.logger != nil {
			a.logger.Error().Err(err).Msg("failed to get results")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := resultsResponse{
		Total:   result.Total,
		Limit:   limit,
		HasMore: len(result.Findings) == limit,
	}
	for _, f := range result.Findings {
		resp.Findings = append(resp.Findings, findingView{
			ID: f.ID, JobID: f.JobID, Bucket: f.Bucket, Key: f.Key,
			Detector: f.Detector, MaskedMatch: f.MaskedMatch, Context: f.Context,
			ByteOffset: f.ByteOffset, CreatedAt: f.CreatedAt,
		})
	}

	if usingCursor {
		resp.Cursor = cursorParam
		if len(result.Findings) > 0 {
			resp.NextCursor = strconv.FormatInt(result.Findings[len(result.Findings)-1].ID, 10)
		}
	} else {
		resp.Offset = &offsetVal
		resp.HasMore = offsetVal+int64(limit) < result.Total
	}

	writeJSON(w, http.StatusOK, resp)
}
