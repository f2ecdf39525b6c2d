package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

// TaskDB implements repository.TaskRepository on the shared pool.
type TaskDB struct {
	conn *sql.DB
}

// compile-time check that *TaskDB implements repository.TaskRepository
var _ repository.TaskRepository = (*TaskDB)(nil)

const taskColumns = `id, user_id, project_id, title, description, date, start_time, end_time, status, priority, tags, categories, created_at, updated_at`

// Create inserts a new task owned by task.UserID.
//
// Tags and Categories are stored as JSON text in single columns. SQLite
// has no native array type, and the lists are opaque to every query we
// run — we never filter by tag server-side — so JSON text keeps the
// schema flat without a join table.
func (db *TaskDB) Create(ctx context.Context, task *model.Task) error {
	task.ID = xid.New().String()
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = model.TaskStatusPending
	}
	if task.Priority == "" {
		task.Priority = model.TaskPriorityMedium
	}

	tags, err := encodeList(task.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding task tags: %w", err)
	}
	categories, err := encodeList(task.Categories)
	if err != nil {
		return fmt.Errorf("sqlite: encoding task categories: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, project_id, title, description, date, start_time, end_time, status, priority, tags, categories, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.UserID,
		nullIfEmpty(task.ProjectID),
		task.Title,
		task.Description,
		task.Date,
		task.StartTime,
		task.EndTime,
		task.Status,
		task.Priority,
		tags,
		categories,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting task: %w", err)
	}

	return nil
}

// GetByID retrieves a task, scoped to its owner (see ProjectDB.GetByID for
// why scoping doubles as existence hiding).
func (db *TaskDB) GetByID(ctx context.Context, userID, id string) (*model.Task, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)

	task, err := scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("task", id)
		}
		return nil, fmt.Errorf("sqlite: getting task %s: %w", id, err)
	}
	return task, nil
}

// List returns a user's tasks, optionally narrowed by project, date, or
// status. Filters compose with AND; the WHERE clause is assembled from
// fixed fragments with ? placeholders; values never get concatenated
// into the SQL text.
func (db *TaskDB) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]model.Task, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}

	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Date != "" {
		where = append(where, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+` ORDER BY date, start_time`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning task row: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating task rows: %w", err)
	}

	return tasks, nil
}

// Update writes back a task's mutable fields (the service has already
// merged partial input into the current row).
func (db *TaskDB) Update(ctx context.Context, task *model.Task) error {
	task.UpdatedAt = time.Now()

	tags, err := encodeList(task.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding task tags: %w", err)
	}
	categories, err := encodeList(task.Categories)
	if err != nil {
		return fmt.Errorf("sqlite: encoding task categories: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE tasks SET project_id = ?, title = ?, description = ?, date = ?, start_time = ?, end_time = ?, status = ?, priority = ?, tags = ?, categories = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		nullIfEmpty(task.ProjectID),
		task.Title,
		task.Description,
		task.Date,
		task.StartTime,
		task.EndTime,
		task.Status,
		task.Priority,
		tags,
		categories,
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating task %s: %w", task.ID, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("task", task.ID)
	}
	return nil
}

// Delete removes a task.
func (db *TaskDB) Delete(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting task %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete result: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("task", id)
	}
	return nil
}

// DeleteAllByUser wipes all of a user's tasks. Zero rows deleted is not an
// error here — an empty board is a legal starting point for an import.
func (db *TaskDB) DeleteAllByUser(ctx context.Context, userID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM tasks WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting tasks for user %s: %w", userID, err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows so scanTask can serve single
// and multi-row queries.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var t model.Task
	var projectID sql.NullString
	var tags, categories string

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&projectID,
		&t.Title,
		&t.Description,
		&t.Date,
		&t.StartTime,
		&t.EndTime,
		&t.Status,
		&t.Priority,
		&tags,
		&categories,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.ProjectID = projectID.String
	if t.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if t.Categories, err = decodeList(categories); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}

	return &t, nil
}

// encodeList serializes a string list to JSON text, normalizing nil to [].
func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList parses JSON text back into a string list, tolerating the
// empty string left by older rows.
func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}
