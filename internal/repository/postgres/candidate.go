// Package postgres implements the candidate and project stores against
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// CandidateRepo implements the candidate store against PostgreSQL.
type CandidateRepo struct{ db *sql.DB }

// NewCandidateRepo creates a Postgres-backed candidate repository.
func NewCandidateRepo(db *sql.DB) *CandidateRepo { return &CandidateRepo{db: db} }

const candidateColumns = `
	id, project_id, COALESCE(full_name,''), linkedin_url,
	COALESCE(email,''), COALESCE(phone,''), status,
	created_at, updated_at, date_contact`

func scanCandidate(row interface{ Scan(...interface{}) error }) (*candidate.Record, error) {
	c := &candidate.Record{}
	err := row.Scan(
		&c.ID, &c.ProjectID, &c.FullName, &c.LinkedInURL,
		&c.Email, &c.Phone, &c.Status,
		&c.CreatedAt, &c.UpdatedAt, &c.DateContact,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get fetches a single candidate by id.
func (r *CandidateRepo) Get(ctx context.Context, id int64) (*candidate.Record, error) {
	c, err := scanCandidate(r.db.QueryRowContext(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE id = $1
	`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// InsertBatch inserts a batch of candidates in a single statement and
// returns how many rows the store accepted. Empty optional fields are
// stored as NULL.
func (r *CandidateRepo) InsertBatch(ctx context.Context, rows []candidate.Record) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var (
		placeholders []string
		args         []interface{}
	)
	for i, c := range rows {
		base := i * 6
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, NULLIF($%d,''), $%d, NULLIF($%d,''), NULLIF($%d,''), $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args, c.ProjectID, c.FullName, c.LinkedInURL, c.Email, c.Phone, string(c.Status))
	}

	query := `
		INSERT INTO candidates (project_id, full_name, linkedin_url, email, phone, status)
		VALUES ` + strings.Join(placeholders, ", ")

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert candidates: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Driver accepted the statement; fall back to the batch size.
		return len(rows), nil
	}
	return int(n), nil
}

// CountByProject returns how many candidates belong to a project.
func (r *CandidateRepo) CountByProject(ctx context.Context, projectID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidates WHERE project_id = $1`, projectID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}

// ListRecent returns the most recently created candidates for a project.
func (r *CandidateRepo) ListRecent(ctx context.Context, projectID int64, limit int) ([]candidate.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []candidate.Record
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SetStatus writes a status unconditionally. Used for error-state
// convergence, where the write must land regardless of what happened to
// the row in the meantime.
func (r *CandidateRepo) SetStatus(ctx context.Context, id int64, status candidate.Status) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE candidates SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// SetStatusIf writes a status only if the row still carries the status
// the caller read. Returns false when a concurrent writer got there
// first; the caller's write is dropped instead of clobbering.
func (r *CandidateRepo) SetStatusIf(ctx context.Context, id int64, from, to candidate.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("set status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set status: %w", err)
	}
	return n == 1, nil
}

// ApplyEnrichment writes enriched contact fields and advances the row to
// ready-for-outreach, conditional on it still awaiting enrichment.
func (r *CandidateRepo) ApplyEnrichment(ctx context.Context, id int64, email, phone string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates
		SET email = NULLIF($2,''), phone = NULLIF($3,''), status = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, id, email, phone,
		string(candidate.StatusReadyForOutreach),
		string(candidate.StatusNeedsEnrichment))
	if err != nil {
		return false, fmt.Errorf("apply enrichment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply enrichment: %w", err)
	}
	return n == 1, nil
}

// MarkContacted advances a ready-for-outreach row to contacted and
// stamps the contact time.
func (r *CandidateRepo) MarkContacted(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates
		SET status = $2, date_contact = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id,
		string(candidate.StatusContacted),
		string(candidate.StatusReadyForOutreach))
	if err != nil {
		return false, fmt.Errorf("mark contacted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark contacted: %w", err)
	}
	return n == 1, nil
}

// StatusCounts returns the pipeline-view projection: candidates per
// status bucket for one project.
func (r *CandidateRepo) StatusCounts(ctx context.Context, projectID int64) (map[candidate.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM candidates
		WHERE project_id = $1
		GROUP BY status
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[candidate.Status]int)
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[candidate.Status(s)] = n
	}
	return counts, rows.Err()
}
