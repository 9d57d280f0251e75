package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

// ProjectRepo implements the project store against PostgreSQL.
type ProjectRepo struct{ db *sql.DB }

// NewProjectRepo creates a Postgres-backed project repository.
func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// Get fetches a project by id.
func (r *ProjectRepo) Get(ctx context.Context, id int64) (*candidate.Project, error) {
	p := &candidate.Project{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(recruiter_name,'')
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.RecruiterName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// Exists reports whether a project id resolves to a row.
func (r *ProjectRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = $1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("project exists: %w", err)
	}
	return true, nil
}
