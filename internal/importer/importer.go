// Package importer turns an uploaded CSV of sourced candidates into
// validated rows in the candidate store, inserted in bounded batches.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrInvalidProjectID = errors.New("project_id is required and must be a valid positive number")
	ErrNoLinkedInRows   = errors.New("no candidate with a valid LinkedIn URL found in the CSV")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// DefaultBatchSize bounds how many rows go to the store in one insert.
const DefaultBatchSize = 50

// DefaultBatchPause is the delay between batches, keeping bulk imports
// from saturating the store.
const DefaultBatchPause = 100 * time.Millisecond

// CandidateStore is the subset of the repository the importer uses.
type CandidateStore interface {
	InsertBatch(ctx context.Context, rows []candidate.Record) (int, error)
	CountByProject(ctx context.Context, projectID int64) (int, error)
	ListRecent(ctx context.Context, projectID int64, limit int) ([]candidate.Record, error)
}

// BatchError records one failed batch. Permission failures get their own
// flag because they are actionable (store policies, not data).
type BatchError struct {
	Batch      int    `json:"batch"`
	Rows       int    `json:"rows"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Permission bool   `json:"permission,omitempty"`
}

// Summary is the import outcome surfaced to the caller.
type Summary struct {
	Total       int          `json:"total"`
	Success     int          `json:"success"`
	Errors      int          `json:"errors"`
	CountBefore int          `json:"count_before"`
	CountAfter  int          `json:"count_after"`
	NewlyAdded  int          `json:"newly_added"`
	BatchErrors []BatchError `json:"batch_errors,omitempty"`
}

// Result is the successful import response: inserted rows plus summary.
type Result struct {
	Rows    []candidate.Record `json:"data"`
	Summary Summary            `json:"summary"`
}

// ValidationError aborts the whole import before any insert.
type ValidationError struct {
	Row    int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at row %d: %s", e.Row, e.Reason)
}

// ImportFailedError means zero rows were inserted across all batches.
type ImportFailedError struct {
	BatchErrors []BatchError
}

func (e *ImportFailedError) Error() string {
	var b strings.Builder
	b.WriteString("no candidate could be inserted")
	for _, be := range e.BatchErrors {
		if be.Permission {
			b.WriteString(fmt.Sprintf("; batch %d rejected by store access policy: %s (check the candidates table policies)", be.Batch, be.Message))
		} else {
			b.WriteString(fmt.Sprintf("; batch %d: %s", be.Batch, be.Message))
		}
	}
	return b.String()
}

// Permission reports whether any batch failed on an access-control
// rejection rather than a generic store error.
func (e *ImportFailedError) Permission() bool {
	for _, be := range e.BatchErrors {
		if be.Permission {
			return true
		}
	}
	return false
}

// Importer runs the CSV import pipeline.
type Importer struct {
	store      CandidateStore
	progress   *ProgressTracker // nil disables progress tracking
	batchSize  int
	batchPause time.Duration
}

// New creates an importer. Zero batch settings take the defaults.
func New(store CandidateStore, progress *ProgressTracker, batchSize int, batchPause time.Duration) *Importer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchPause <= 0 {
		batchPause = DefaultBatchPause
	}
	return &Importer{store: store, progress: progress, batchSize: batchSize, batchPause: batchPause}
}

// ParseProjectID coerces the caller-supplied project id to the store's
// numeric key type. Imports never run against a non-positive id.
func ParseProjectID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidProjectID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidProjectID
	}
	return id, nil
}

// ProcessCSV parses, validates, and batch-inserts one uploaded file.
// Rows without a LinkedIn URL are dropped silently; everything else is
// all-or-nothing up to the batching stage, after which each batch fails
// independently. The call errors only if zero rows were inserted.
func (imp *Importer) ProcessCSV(ctx context.Context, jobID string, r io.Reader, rawProjectID string, mapping *FieldMapping) (*Result, error) {
	projectID, err := ParseProjectID(rawProjectID)
	if err != nil {
		return nil, err
	}

	log.Printf("[Import] %s: starting for project %d", jobID, projectID)

	rows, err := parseCandidates(r, projectID, mapping)
	if err != nil {
		return nil, err
	}
	log.Printf("[Import] %s: parsed %d rows", jobID, len(rows))

	// Rows without a LinkedIn URL never enter the pipeline.
	valid := rows[:0]
	for _, c := range rows {
		if c.LinkedInURL != "" {
			valid = append(valid, c)
		}
	}
	if dropped := len(rows) - len(valid); dropped > 0 {
		log.Printf("[Import] %s: dropped %d rows without a LinkedIn URL", jobID, dropped)
	}
	if len(valid) == 0 {
		return nil, ErrNoLinkedInRows
	}

	if err := validateRows(valid); err != nil {
		return nil, err
	}

	countBefore, err := imp.store.CountByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("count before import: %w", err)
	}

	imp.trackStart(ctx, jobID, len(valid))

	success, batchErrors := imp.insertInBatches(ctx, jobID, valid)

	countAfter, err := imp.store.CountByProject(ctx, projectID)
	if err != nil {
		// The import already happened; don't fail it over a count.
		log.Printf("[Import] %s: count after import failed: %v", jobID, err)
		countAfter = countBefore + success
	}

	summary := Summary{
		Total:       len(valid),
		Success:     success,
		Errors:      len(batchErrors),
		CountBefore: countBefore,
		CountAfter:  countAfter,
		NewlyAdded:  countAfter - countBefore,
		BatchErrors: batchErrors,
	}

	log.Printf("[Import] %s: done, %d/%d inserted, %d batch errors, project total %d -> %d",
		jobID, success, len(valid), len(batchErrors), countBefore, countAfter)

	if success == 0 {
		imp.trackDone(ctx, jobID, summary, "failed")
		return nil, &ImportFailedError{BatchErrors: batchErrors}
	}
	imp.trackDone(ctx, jobID, summary, "completed")

	inserted, err := imp.store.ListRecent(ctx, projectID, success)
	if err != nil {
		log.Printf("[Import] %s: fetch of inserted rows failed: %v", jobID, err)
	}
	return &Result{Rows: inserted, Summary: summary}, nil
}

// validateRows checks the schema for every surviving row. Any violation
// aborts the whole import with no partial insert.
func validateRows(rows []candidate.Record) error {
	for i, c := range rows {
		if c.LinkedInURL == "" {
			return &ValidationError{Row: i + 1, Reason: "linkedin_url is required"}
		}
		if c.Email != "" && !emailRegex.MatchString(c.Email) {
			return &ValidationError{Row: i + 1, Reason: fmt.Sprintf("invalid email %q", c.Email)}
		}
		if c.Status == "" {
			return &ValidationError{Row: i + 1, Reason: "status is required"}
		}
		if c.ProjectID <= 0 {
			return &ValidationError{Row: i + 1, Reason: "project_id is required"}
		}
	}
	return nil
}

func (imp *Importer) insertInBatches(ctx context.Context, jobID string, rows []candidate.Record) (int, []BatchError) {
	var (
		success     int
		batchErrors []BatchError
	)

	for i := 0; i < len(rows); i += imp.batchSize {
		end := i + imp.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[i:end]
		batchNumber := i/imp.batchSize + 1

		n, err := imp.store.InsertBatch(ctx, batch)
		if err != nil {
			be := BatchError{Batch: batchNumber, Rows: len(batch), Message: err.Error()}
			var pqErr *pq.Error
			if errors.As(err, &pqErr) {
				be.Code = string(pqErr.Code)
			}
			be.Permission = isPermissionError(err)
			if be.Permission {
				log.Printf("[Import] %s: batch %d rejected by access policy: %v", jobID, batchNumber, err)
			} else {
				log.Printf("[Import] %s: batch %d failed: %v", jobID, batchNumber, err)
			}
			batchErrors = append(batchErrors, be)
		} else {
			success += n
			log.Printf("[Import] %s: batch %d inserted %d candidates", jobID, batchNumber, n)
		}

		imp.trackBatch(ctx, jobID, end, len(rows), success, len(batchErrors))

		// Pause between batches to bound load on the store.
		if end < len(rows) {
			select {
			case <-ctx.Done():
				return success, batchErrors
			case <-time.After(imp.batchPause):
			}
		}
	}
	return success, batchErrors
}

// isPermissionError classifies store rejections caused by access
// policies (code 42501, insufficient_privilege) as a distinct,
// actionable failure kind.
func isPermissionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42501" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "row-level security")
}
