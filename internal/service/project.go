package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

const MaxProjectNameLength = 100

// ProjectService handles business logic for projects.
//
// Every method takes the acting user's ID as its first domain argument;
// ownership scoping happens in the repository queries, so a user can never
// see or touch another user's projects through this service.
type ProjectService struct {
	repo   repository.ProjectRepository
	logger *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(repo repository.ProjectRepository, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		repo:   repo,
		logger: logger,
	}
}

// ProjectInput carries the client-settable fields of a project.
type ProjectInput struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// ProjectUpdate carries a partial update. Pointer fields distinguish
// "not sent" (nil → keep current value) from "sent as empty" (clear it).
type ProjectUpdate struct {
	Name  *string `json:"name"`
	Title *string `json:"title"`
	Color *string `json:"color"`
}

// Create validates and saves a new project for userID.
func (s *ProjectService) Create(ctx context.Context, userID string, in ProjectInput) (*model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "project name is required")
	}
	if len(name) > MaxProjectNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("project name must be %d characters or less", MaxProjectNameLength))
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "project title is required")
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		return nil, apperror.ValidationFailed("color", "project color is required")
	}

	project := &model.Project{
		UserID: userID,
		Name:   name,
		Title:  title,
		Color:  color,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.String("id", project.ID),
		slog.String("userID", userID),
	)

	return project, nil
}

// GetByID retrieves one of userID's projects.
// Returns apperror.ErrNotFound if it doesn't exist or belongs to someone else.
func (s *ProjectService) GetByID(ctx context.Context, userID, id string) (*model.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "project ID is required")
	}
	return s.repo.GetByID(ctx, userID, id)
}

// List returns all of userID's projects.
func (s *ProjectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list projects",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Update applies a partial update to one of userID's projects.
//
// STRATEGY: "Fetch then update" — fetch the current row (confirming
// ownership and existence), merge only the fields the client sent, then
// write the whole row back.
func (s *ProjectService) Update(ctx context.Context, userID, id string, in ProjectUpdate) (*model.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "project ID is required")
	}

	project, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "project name is required")
		}
		if len(name) > MaxProjectNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("project name must be %d characters or less", MaxProjectNameLength))
		}
		project.Name = name
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "project title is required")
		}
		project.Title = title
	}
	if in.Color != nil {
		color := strings.TrimSpace(*in.Color)
		if color == "" {
			return nil, apperror.ValidationFailed("color", "project color is required")
		}
		project.Color = color
	}

	if err := s.repo.Update(ctx, project); err != nil {
		s.logger.Error("failed to update project",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("project updated", slog.String("id", project.ID))

	return project, nil
}

// Delete removes one of userID's projects. Its tasks go with it (the
// schema cascades task deletion on project deletion).
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "project ID is required")
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("project deleted", slog.String("id", id))
	return nil
}
