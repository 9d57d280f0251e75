package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterai/recruit-engine/internal/candidate"
	"github.com/hunterai/recruit-engine/internal/importer"
	"github.com/hunterai/recruit-engine/internal/repository/postgres"
)

type fakeImporter struct {
	lastProjectID string
	lastMapping   *importer.FieldMapping
	result        *importer.Result
	err           error
}

func (f *fakeImporter) ProcessCSV(ctx context.Context, jobID string, r io.Reader, rawProjectID string, mapping *importer.FieldMapping) (*importer.Result, error) {
	f.lastProjectID = rawProjectID
	f.lastMapping = mapping
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeProgress struct {
	progress *importer.Progress
	err      error
}

func (f *fakeProgress) Get(ctx context.Context, jobID string) (*importer.Progress, error) {
	return f.progress, f.err
}

type fakeCandidates struct {
	rec        *candidate.Record
	getErr     error
	setOK      bool
	setErr     error
	setCalls   int
	counts     map[candidate.Status]int
	countsErr  error
	lastFrom   candidate.Status
	lastTarget candidate.Status
}

func (f *fakeCandidates) Get(ctx context.Context, id int64) (*candidate.Record, error) {
	return f.rec, f.getErr
}

func (f *fakeCandidates) SetStatusIf(ctx context.Context, id int64, from, to candidate.Status) (bool, error) {
	f.setCalls++
	f.lastFrom, f.lastTarget = from, to
	return f.setOK, f.setErr
}

func (f *fakeCandidates) StatusCounts(ctx context.Context, projectID int64) (map[candidate.Status]int, error) {
	return f.counts, f.countsErr
}

type fakeProjects struct {
	exists bool
	err    error
}

func (f *fakeProjects) Exists(ctx context.Context, id int64) (bool, error) {
	return f.exists, f.err
}

type fakeArchiver struct {
	key      string
	err      error
	archived int
}

func (f *fakeArchiver) Archive(ctx context.Context, jobID, filename string, data []byte) (string, error) {
	f.archived++
	return f.key, f.err
}

func newTestServer(t *testing.T, h *Handlers) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(SetupRoutes(h))
	t.Cleanup(srv.Close)
	return srv
}

func multipartUpload(t *testing.T, csvData, projectID, mapping string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "candidates.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvData))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("project_id", projectID))
	if mapping != "" {
		require.NoError(t, mw.WriteField("mapping", mapping))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, nil))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestHandleImportSuccess(t *testing.T) {
	imp := &fakeImporter{result: &importer.Result{
		Summary: importer.Summary{Total: 2, Success: 2, NewlyAdded: 2},
	}}
	arch := &fakeArchiver{key: "imports/x.csv"}
	srv := newTestServer(t, NewHandlers(imp, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, arch))

	body, contentType := multipartUpload(t, "Nom,LinkedIn\nA,https://linkedin.com/in/a\n", "7", `{"name":"Nom"}`)
	resp, err := http.Post(srv.URL+"/api/imports", contentType, body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	assert.NotEmpty(t, out["job_id"])
	assert.Equal(t, "7", imp.lastProjectID)
	require.NotNil(t, imp.lastMapping)
	assert.Equal(t, "Nom", imp.lastMapping.Name)
	assert.Equal(t, 1, arch.archived)
}

func TestHandleImportMissingFile(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, nil))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("project_id", "1"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/imports", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleImportErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid project", importer.ErrInvalidProjectID, http.StatusBadRequest},
		{"empty file", importer.ErrEmptyFile, http.StatusBadRequest},
		{"no linkedin rows", importer.ErrNoLinkedInRows, http.StatusBadRequest},
		{"validation", &importer.ValidationError{Row: 3, Reason: "bad email"}, http.StatusBadRequest},
		{"all batches failed", &importer.ImportFailedError{BatchErrors: []importer.BatchError{{Batch: 1, Message: "down"}}}, http.StatusInternalServerError},
		{"permission", &importer.ImportFailedError{BatchErrors: []importer.BatchError{{Batch: 1, Permission: true, Message: "denied"}}}, http.StatusForbidden},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, NewHandlers(&fakeImporter{err: tt.err}, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, nil))
			body, contentType := multipartUpload(t, "x", "1", "")
			resp, err := http.Post(srv.URL+"/api/imports", contentType, body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestHandleImportArchiveFailureDoesNotBlockImport(t *testing.T) {
	imp := &fakeImporter{result: &importer.Result{}}
	srv := newTestServer(t, NewHandlers(imp, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, &fakeArchiver{err: errors.New("s3 down")}))

	body, contentType := multipartUpload(t, "x", "1", "")
	resp, err := http.Post(srv.URL+"/api/imports", contentType, body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleImportProgress(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{progress: &importer.Progress{
		JobID: "job-1", Status: "running", TotalRows: 100, ProcessedRows: 50,
	}}, &fakeCandidates{}, &fakeProjects{}, nil))

	resp, err := http.Get(srv.URL + "/api/imports/job-1/progress")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody(t, resp)
	assert.Equal(t, "running", out["status"])
	assert.EqualValues(t, 50, out["processed_rows"])
}

func TestHandleImportProgressNotFound(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{err: importer.ErrProgressNotFound}, &fakeCandidates{}, &fakeProjects{}, nil))

	resp, err := http.Get(srv.URL + "/api/imports/missing/progress")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandlePipeline(t *testing.T) {
	candidates := &fakeCandidates{counts: map[candidate.Status]int{
		candidate.StatusNeedsEnrichment:  3,
		candidate.StatusReadyForOutreach: 1,
		candidate.StatusContacted:        2,
	}}
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, candidates, &fakeProjects{exists: true}, nil))

	resp, err := http.Get(srv.URL + "/api/projects/7/pipeline")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	assert.EqualValues(t, 6, out["total"])
	stages := out["stages"].([]interface{})
	assert.Len(t, stages, len(candidate.AllStatuses()), "every status bucket appears even at zero")
}

func TestHandlePipelineProjectNotFound(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{exists: false}, nil))

	resp, err := http.Get(srv.URL + "/api/projects/99/pipeline")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandlePipelineBadProjectID(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, nil))

	resp, err := http.Get(srv.URL + "/api/projects/abc/pipeline")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func postWebhook(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/webhooks/status", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestStatusWebhookValidTransition(t *testing.T) {
	candidates := &fakeCandidates{
		rec:   &candidate.Record{ID: 5, Status: candidate.StatusContacted},
		setOK: true,
	}
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, candidates, &fakeProjects{}, nil))

	resp := postWebhook(t, srv, `{"candidate_id":5,"status":"REPONDU"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, candidate.StatusContacted, candidates.lastFrom)
	assert.Equal(t, candidate.StatusResponded, candidates.lastTarget)
}

func TestStatusWebhookIllegalTransition(t *testing.T) {
	candidates := &fakeCandidates{rec: &candidate.Record{ID: 5, Status: candidate.StatusNeedsEnrichment}}
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, candidates, &fakeProjects{}, nil))

	resp := postWebhook(t, srv, `{"candidate_id":5,"status":"RDV_PLANIFIE"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
	assert.Zero(t, candidates.setCalls, "illegal transition must not reach the store")
}

func TestStatusWebhookUnknownStatus(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, &fakeCandidates{}, &fakeProjects{}, nil))

	resp := postWebhook(t, srv, `{"candidate_id":5,"status":"NOPE"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStatusWebhookCandidateNotFound(t *testing.T) {
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, &fakeCandidates{getErr: postgres.ErrNotFound}, &fakeProjects{}, nil))

	resp := postWebhook(t, srv, `{"candidate_id":404,"status":"CONTACTE"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestStatusWebhookConcurrentChange(t *testing.T) {
	candidates := &fakeCandidates{
		rec:   &candidate.Record{ID: 5, Status: candidate.StatusContacted},
		setOK: false,
	}
	srv := newTestServer(t, NewHandlers(&fakeImporter{}, &fakeProgress{}, candidates, &fakeProjects{}, nil))

	resp := postWebhook(t, srv, `{"candidate_id":5,"status":"REPONDU"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
