package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// ProjectDB implements repository.ProjectRepository on the shared pool.
type ProjectDB struct {
	conn *sql.DB
}

// compile-time check that *ProjectDB implements repository.ProjectRepository
var _ repository.ProjectRepository = (*ProjectDB)(nil)

const projectColumns = `id, user_id, name, title, color, created_at, updated_at`

// Create inserts a new project owned by project.UserID.
func (db *ProjectDB) Create(ctx context.Context, project *model.Project) error {
	project.ID = xid.New().String()
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, title, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.UserID,
		project.Name,
		project.Title,
		project.Color,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting project: %w", err)
	}

	return nil
}

// GetByID retrieves a project, scoped to its owner.
//
// USER SCOPING AS EXISTENCE HIDING:
// The WHERE clause requires BOTH id and user_id to match. Someone probing
// another user's project id gets the same NotFound as a truly absent id —
// the query cannot distinguish the cases, so neither can the response.
func (db *ProjectDB) GetByID(ctx context.Context, userID, id string) (*model.Project, error) {
	var p model.Project

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Title,
		&p.Color,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("project", id)
		}
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}

	return &p, nil
}

// ListByUser returns all of a user's projects, newest first.
func (db *ProjectDB) ListByUser(ctx context.Context, userID string) ([]model.Project, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	defer rows.Close()

	// Initialize to an empty slice (not nil) so an empty list serializes
	// as [] rather than null.
	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.Name,
			&p.Title,
			&p.Color,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating project rows: %w", err)
	}

	return projects, nil
}

// Update writes back a project's mutable fields. The caller (service)
// has already merged partial input into the current row.
func (db *ProjectDB) Update(ctx context.Context, project *model.Project) error {
	project.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE projects SET name = ?, title = ?, color = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		project.Name,
		project.Title,
		project.Color,
		project.UpdatedAt,
		project.ID,
		project.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating project %s: %w", project.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("project", project.ID)
	}
	return nil
}

// Delete removes a project and, via CASCADE, its tasks.
func (db *ProjectDB) Delete(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM projects WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting project %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("project", id)
	}
	return nil
}

// DeleteAllByUser wipes every project a user owns (tasks cascade). The
// bulk import calls this before re-inserting the imported data.
func (db *ProjectDB) DeleteAllByUser(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM projects WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting projects for user %s: %w", userID, err)
	}
	return nil
}
