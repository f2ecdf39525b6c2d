package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/model"
	"github.com/sakif/taskboard/internal/repository"
)

const MaxTaskTitleLength = 200

// TaskService handles business logic for tasks.
//
// It holds the project repository as well: a task created with a project ID
// gets that ID checked against the user's own projects, so nobody can file
// tasks under a project they don't own.
type TaskService struct {
	tasks    repository.TaskRepository
	projects repository.ProjectRepository
	logger   *slog.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks repository.TaskRepository, projects repository.ProjectRepository, logger *slog.Logger) *TaskService {
	return &TaskService{
		tasks:    tasks,
		projects: projects,
		logger:   logger,
	}
}

// TaskInput carries the client-settable fields of a task.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ProjectID   string   `json:"projectId"`
	Date        string   `json:"date"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
}

// TaskUpdate carries a partial update; nil means "keep the current value".
type TaskUpdate struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	ProjectID   *string   `json:"projectId"`
	Date        *string   `json:"date"`
	StartTime   *string   `json:"startTime"`
	EndTime     *string   `json:"endTime"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	Tags        *[]string `json:"tags"`
	Categories  *[]string `json:"categories"`
}

// Create validates and saves a new task for userID.
func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "task title is required")
	}
	if len(title) > MaxTaskTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("task title must be %d characters or less", MaxTaskTitleLength))
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		return nil, apperror.ValidationFailed("date", "task date is required")
	}
	if in.Status != "" && !validTaskStatus(in.Status) {
		return nil, apperror.ValidationFailed("status", "status must be pending, in_progress, or completed")
	}
	if in.Priority != "" && !validTaskPriority(in.Priority) {
		return nil, apperror.ValidationFailed("priority", "priority must be low, medium, or high")
	}

	// A task may be loose (no project) or filed under one of the user's
	// OWN projects. Resolving through the user-scoped getter rejects both
	// unknown and foreign project IDs with the same NotFound.
	if in.ProjectID != "" {
		if _, err := s.projects.GetByID(ctx, userID, in.ProjectID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("projectId", "project does not exist")
			}
			return nil, fmt.Errorf("checking project: %w", err)
		}
	}

	task := &model.Task{
		UserID:      userID,
		ProjectID:   in.ProjectID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		StartTime:   strings.TrimSpace(in.StartTime),
		EndTime:     strings.TrimSpace(in.EndTime),
		Status:      in.Status,
		Priority:    in.Priority,
		Tags:        in.Tags,
		Categories:  in.Categories,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		s.logger.Error("failed to create task",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.String("id", task.ID),
		slog.String("userID", userID),
	)

	return task, nil
}

// GetByID retrieves one of userID's tasks.
func (s *TaskService) GetByID(ctx context.Context, userID, id string) (*model.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "task ID is required")
	}
	return s.tasks.GetByID(ctx, userID, id)
}

// List returns userID's tasks, narrowed by the optional filter fields.
func (s *TaskService) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]model.Task, error) {
	if filter.Status != "" && !validTaskStatus(filter.Status) {
		return nil, apperror.ValidationFailed("status", "status must be pending, in_progress, or completed")
	}

	tasks, err := s.tasks.List(ctx, userID, filter)
	if err != nil {
		s.logger.Error("failed to list tasks",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Update applies a partial update to one of userID's tasks
// (fetch, merge the sent fields, write back).
func (s *TaskService) Update(ctx context.Context, userID, id string, in TaskUpdate) (*model.Task, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperror.ValidationFailed("id", "task ID is required")
	}

	task, err := s.tasks.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "task title is required")
		}
		if len(title) > MaxTaskTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("task title must be %d characters or less", MaxTaskTitleLength))
		}
		task.Title = title
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.ProjectID != nil {
		// Sending "" moves the task out of any project
		if *in.ProjectID != "" {
			if _, err := s.projects.GetByID(ctx, userID, *in.ProjectID); err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					return nil, apperror.ValidationFailed("projectId", "project does not exist")
				}
				return nil, fmt.Errorf("checking project: %w", err)
			}
		}
		task.ProjectID = *in.ProjectID
	}
	if in.Date != nil {
		date := strings.TrimSpace(*in.Date)
		if date == "" {
			return nil, apperror.ValidationFailed("date", "task date is required")
		}
		task.Date = date
	}
	if in.StartTime != nil {
		task.StartTime = strings.TrimSpace(*in.StartTime)
	}
	if in.EndTime != nil {
		task.EndTime = strings.TrimSpace(*in.EndTime)
	}
	if in.Status != nil {
		if !validTaskStatus(*in.Status) {
			return nil, apperror.ValidationFailed("status", "status must be pending, in_progress, or completed")
		}
		task.Status = *in.Status
	}
	if in.Priority != nil {
		if !validTaskPriority(*in.Priority) {
			return nil, apperror.ValidationFailed("priority", "priority must be low, medium, or high")
		}
		task.Priority = *in.Priority
	}
	if in.Tags != nil {
		task.Tags = *in.Tags
	}
	if in.Categories != nil {
		task.Categories = *in.Categories
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		s.logger.Error("failed to update task",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("task updated", slog.String("id", task.ID))

	return task, nil
}

// Delete removes one of userID's tasks.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "task ID is required")
	}

	if err := s.tasks.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.logger.Info("task deleted", slog.String("id", id))
	return nil
}

func validTaskStatus(status string) bool {
	switch status {
	case model.TaskStatusPending, model.TaskStatusInProgress, model.TaskStatusCompleted:
		return true
	}
	return false
}

func validTaskPriority(priority string) bool {
	switch priority {
	case model.TaskPriorityLow, model.TaskPriorityMedium, model.TaskPriorityHigh:
		return true
	}
	return false
}
