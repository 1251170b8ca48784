package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stracscan/sentinel/internal/db"
	"github.com/stracscan/sentinel/internal/models"
	"github.com/stracscan/sentinel/internal/orchestrator"
	"github.com/stracscan/sentinel/internal/status"
)

type fakeJobCreator struct {
	result orchestrator.Result
	err    error
}

func (f *fakeJobCreator) CreateJob(_ context.Context, bucket, prefix string) (orchestrator.Result, error) {
	if f.err != nil {
		return orchestrator.Result{}, f.err
	}
	f.result.Bucket = bucket
	f.result.Prefix = prefix
	return f.result, nil
}

type fakeStatusReader struct {
	result status.Status
	found  bool
	err    error
}

func (f *fakeStatusReader) Get(_ context.Context, _ string, _ bool) (status.Status, bool, error) {
	return f.result, f.found, f.err
}

type fakeFindingsReader struct {
	page db.FindingsPage
	err  error
}

func (f *fakeFindingsReader) GetFindings(_ context.Context, _ db.FindingFilter, _ db.Pagination, _ int) (db.FindingsPage, error) {
	return f.page, f.err
}

func TestHandleScan_MissingBucketReturns400(t *testing.T) {
	a := New(&fakeJobCreator{}, &fakeStatusReader{}, &fakeFindingsReader{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleScan_MalformedJSONToleratedAsEmptyBody(t *testing.T) {
	a := New(&fakeJobCreator{}, &fakeStatusReader{}, &fakeFindingsReader{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewBufferString(`{bad json`))
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	// Malformed JSON is swallowed like an empty body, so this fails on
	// the missing-bucket check, not a generic decode error.
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "bucket is required", body["error"])
}

func TestHandleScan_ValidRequestReturns200(t *testing.T) {
	jc := &fakeJobCreator{result: orchestrator.Result{JobID: "job-1", Status: "listing", Async: true}}
	a := New(jc, &fakeStatusReader{}, &fakeFindingsReader{}, nil)

	body, _ := json.Marshal(scanRequest{Bucket: "my-bucket", Prefix: "data/"})
	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewBuffer(body))
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result orchestrator.Result
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, "my-bucket", result.Bucket)
}

func TestHandleJobStatus_NotFoundReturns404(t *testing.T) {
	a := New(&fakeJobCreator{}, &fakeStatusReader{found: false}, &fakeFindingsReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/unknown", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleJobStatus_FoundReturns200(t *testing.T) {
	sr := &fakeStatusReader{found: true, result: status.Status{JobID: "job-1", OverallStatus: "completed"}}
	a := New(&fakeJobCreator{}, sr, &fakeFindingsReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-1", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var s status.Status
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	assert.Equal(t, "completed", s.OverallStatus)
}

func TestHandleResults_CursorPaginationSetsNextCursor(t *testing.T) {
	fr := &fakeFindingsReader{page: db.FindingsPage{
		Findings: []models.Finding{{ID: 101}},
		Total:    5,
	}}
	a := New(&fakeJobCreator{}, &fakeStatusReader{}, fr, nil)

	req := httptest.NewRequest(http.MethodGet, "/results?cursor=200&limit=1", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp resultsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "200", resp.Cursor)
	assert.Equal(t, "101", resp.NextCursor)
}

func TestHandleResults_DefaultsToOffsetPaginationWithoutCursor(t *testing.T) {
	fr := &fakeFindingsReader{page: db.FindingsPage{Total: 0}}
	a := New(&fakeJobCreator{}, &fakeStatusReader{}, fr, nil)

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp resultsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Offset)
	assert.Equal(t, int64(0), *resp.Offset)
}

func TestNotFound_ReturnsJSON404(t *testing.T) {
	a := New(&fakeJobCreator{}, &fakeStatusReader{}, &fakeFindingsReader{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOptions_PreflightReturns2xx(t *testing.T) {
	a := New(&fakeJobCreator{}, &fakeStatusReader{}, &fakeFindingsReader{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/scan", nil)
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
}
