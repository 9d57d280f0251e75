package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hunterai/recruit-engine/internal/candidate"
	"github.com/hunterai/recruit-engine/internal/importer"
	"github.com/hunterai/recruit-engine/internal/repository/postgres"
)

// maxUploadBytes bounds how much of an import upload is read into memory.
const maxUploadBytes = 32 << 20 // 32MB

// ImportService runs the CSV import pipeline.
type ImportService interface {
	ProcessCSV(ctx context.Context, jobID string, r io.Reader, rawProjectID string, mapping *importer.FieldMapping) (*importer.Result, error)
}

// ProgressReader reads live import progress.
type ProgressReader interface {
	Get(ctx context.Context, jobID string) (*importer.Progress, error)
}

// CandidateStore is the candidate repository surface the API needs.
type CandidateStore interface {
	Get(ctx context.Context, id int64) (*candidate.Record, error)
	SetStatusIf(ctx context.Context, id int64, from, to candidate.Status) (bool, error)
	StatusCounts(ctx context.Context, projectID int64) (map[candidate.Status]int, error)
}

// ProjectStore resolves project ids.
type ProjectStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// FileArchiver persists raw uploads for audit. Optional.
type FileArchiver interface {
	Archive(ctx context.Context, jobID, filename string, data []byte) (string, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	importer   ImportService
	progress   ProgressReader
	candidates CandidateStore
	projects   ProjectStore
	archive    FileArchiver // nil disables upload archiving
}

// NewHandlers creates the handler set.
func NewHandlers(imp ImportService, progress ProgressReader, candidates CandidateStore, projects ProjectStore, archive FileArchiver) *Handlers {
	return &Handlers{
		importer:   imp,
		progress:   progress,
		candidates: candidates,
		projects:   projects,
		archive:    archive,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleImport handles POST /api/imports.
// Accepts multipart/form-data with a "file" field, a "project_id" field,
// and an optional "mapping" field carrying a JSON column mapping.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	var mapping *importer.FieldMapping
	if raw := r.FormValue("mapping"); raw != "" {
		mapping = &importer.FieldMapping{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			writeError(w, "invalid mapping JSON", http.StatusBadRequest)
			return
		}
	}

	jobID := uuid.NewString()

	if h.archive != nil {
		if key, err := h.archive.Archive(r.Context(), jobID, header.Filename, data); err != nil {
			// Archiving is best-effort; the import still runs.
			log.Printf("[API] import %s: archive failed: %v", jobID, err)
		} else {
			log.Printf("[API] import %s: archived upload at %s", jobID, key)
		}
	}

	result, err := h.importer.ProcessCSV(r.Context(), jobID, bytes.NewReader(data), r.FormValue("project_id"), mapping)
	if err != nil {
		writeImportError(w, jobID, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"job_id":  jobID,
		"data":    result.Rows,
		"summary": result.Summary,
	})
}

// writeImportError maps import pipeline failures to HTTP statuses.
func writeImportError(w http.ResponseWriter, jobID string, err error) {
	var verr *importer.ValidationError
	var ferr *importer.ImportFailedError

	switch {
	case errors.Is(err, importer.ErrInvalidProjectID),
		errors.Is(err, importer.ErrEmptyFile),
		errors.Is(err, importer.ErrNoLinkedInRows):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &verr):
		writeError(w, verr.Error(), http.StatusBadRequest)
	case errors.As(err, &ferr):
		status := http.StatusInternalServerError
		if ferr.Permission() {
			status = http.StatusForbidden
		}
		writeError(w, ferr.Error(), status)
	default:
		log.Printf("[API] import %s: %v", jobID, err)
		writeError(w, "import failed", http.StatusInternalServerError)
	}
}

// HandleImportProgress handles GET /api/imports/{jobID}/progress
func (h *Handlers) HandleImportProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	p, err := h.progress.Get(r.Context(), jobID)
	if err == importer.ErrProgressNotFound {
		writeError(w, "import job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[API] progress %s: %v", jobID, err)
		writeError(w, "failed to read progress", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// pipelineStage is one status bucket in the pipeline view.
type pipelineStage struct {
	Status candidate.Status `json:"status"`
	Label  string           `json:"label"`
	Count  int              `json:"count"`
}

// HandlePipeline handles GET /api/projects/{projectID}/pipeline
func (h *Handlers) HandlePipeline(w http.ResponseWriter, r *http.Request) {
	projectID, err := importer.ParseProjectID(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, "invalid project id", http.StatusBadRequest)
		return
	}

	exists, err := h.projects.Exists(r.Context(), projectID)
	if err != nil {
		log.Printf("[API] pipeline %d: %v", projectID, err)
		writeError(w, "failed to resolve project", http.StatusInternalServerError)
		return
	}
	if !exists {
		writeError(w, "project not found", http.StatusNotFound)
		return
	}

	counts, err := h.candidates.StatusCounts(r.Context(), projectID)
	if err != nil {
		log.Printf("[API] pipeline %d: %v", projectID, err)
		writeError(w, "failed to load pipeline", http.StatusInternalServerError)
		return
	}

	var total int
	stages := make([]pipelineStage, 0, len(candidate.AllStatuses()))
	for _, s := range candidate.AllStatuses() {
		n := counts[s]
		total += n
		stages = append(stages, pipelineStage{Status: s, Label: s.Label(), Count: n})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project_id": projectID,
		"total":      total,
		"stages":     stages,
	})
}

// statusWebhookRequest is the body for POST /api/webhooks/status
type statusWebhookRequest struct {
	CandidateID int64  `json:"candidate_id"`
	Status      string `json:"status"`
}

// HandleStatusWebhook handles POST /api/webhooks/status. External tools
// (calendars, reply detectors) push status changes here; the transition
// table decides whether the move is legal.
func (h *Handlers) HandleStatusWebhook(w http.ResponseWriter, r *http.Request) {
	var req statusWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CandidateID <= 0 {
		writeError(w, "candidate_id is required", http.StatusBadRequest)
		return
	}

	target := candidate.Status(req.Status)
	if !target.Valid() {
		writeError(w, fmt.Sprintf("unknown status %q", req.Status), http.StatusBadRequest)
		return
	}

	rec, err := h.candidates.Get(r.Context(), req.CandidateID)
	if err == postgres.ErrNotFound {
		writeError(w, "candidate not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[API] webhook candidate %d: %v", req.CandidateID, err)
		writeError(w, "failed to load candidate", http.StatusInternalServerError)
		return
	}

	if !candidate.CanTransition(rec.Status, target) {
		writeError(w, fmt.Sprintf("cannot move from %s to %s", rec.Status, target), http.StatusUnprocessableEntity)
		return
	}

	ok, err := h.candidates.SetStatusIf(r.Context(), req.CandidateID, rec.Status, target)
	if err != nil {
		log.Printf("[API] webhook candidate %d: %v", req.CandidateID, err)
		writeError(w, "failed to update status", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeError(w, "candidate changed concurrently, retry", http.StatusConflict)
		return
	}

	log.Printf("[API] webhook moved candidate %d from %s to %s", req.CandidateID, rec.Status, target)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidate_id": req.CandidateID,
		"status":       target,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
