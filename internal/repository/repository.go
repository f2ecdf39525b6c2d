// Package repository defines the storage interfaces consumed by the
// service layer. The sqlite subpackage provides the implementation;
// services depend only on these interfaces so tests can use in-memory
// fakes.
package repository

import (
	"context"

	"github.com/sakif/taskboard/internal/model"
)

// UserRepository persists user accounts.
//
// Lookup methods return apperror.ErrNotFound (wrapped) when no row
// matches — callers distinguish "absent" from real storage failures with
// errors.Is.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByOAuthID(ctx context.Context, oauthID string) (*model.User, error)
	// LinkOAuthID sets oauth_id on an existing account — the account-linking
	// step of identity resolution. A single conditional update.
	LinkOAuthID(ctx context.Context, userID, oauthID string) error
	UpdateName(ctx context.Context, userID, name string) error
	// Delete removes the account; projects and tasks cascade.
	Delete(ctx context.Context, userID string) error
}

// ProjectRepository persists projects. All reads and writes are scoped by
// userID — a project belonging to someone else is indistinguishable from
// one that doesn't exist.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, userID, id string) (*model.Project, error)
	ListByUser(ctx context.Context, userID string) ([]model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	Delete(ctx context.Context, userID, id string) error
	// DeleteAllByUser wipes a user's projects (tasks cascade). Used by the
	// bulk import, which replaces everything.
	DeleteAllByUser(ctx context.Context, userID string) error
}

// TaskFilter narrows a task listing. Zero-value fields are ignored.
type TaskFilter struct {
	ProjectID string
	Date      string // calendar day, "2006-01-02"
	Status    string
}

// TaskRepository persists tasks, user-scoped like ProjectRepository.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, userID, id string) (*model.Task, error)
	List(ctx context.Context, userID string, filter TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, userID, id string) error
	// DeleteAllByUser wipes a user's tasks, including loose ones with no
	// project. Used by the bulk import.
	DeleteAllByUser(ctx context.Context, userID string) error
}
