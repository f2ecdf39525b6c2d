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

// ImportFormatVersion is the only payload version the importer accepts.
const ImportFormatVersion = "1.0"

// ImportService restores a user's full board from an exported payload.
//
// SEMANTICS: replace, not merge. The user's existing projects and tasks are
// wiped first, then the payload is inserted from scratch. Imported rows get
// fresh IDs; a project-ID map keeps tasks attached to the right projects.
type ImportService struct {
	projects repository.ProjectRepository
	tasks    repository.TaskRepository
	logger   *slog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(projects repository.ProjectRepository, tasks repository.TaskRepository, logger *slog.Logger) *ImportService {
	return &ImportService{
		projects: projects,
		tasks:    tasks,
		logger:   logger,
	}
}

// ImportPayload is the export file format.
type ImportPayload struct {
	Version  string          `json:"version"`
	Projects []ProjectExport `json:"projects"`
	Tasks    []TaskExport    `json:"tasks"`
}

// ProjectExport is one project row in the payload. ID is the ID from the
// exporting installation — only used to reattach tasks, never stored.
type ProjectExport struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Title string `json:"title"`
	Color string `json:"color"`
}

// TaskExport is one task row in the payload.
type TaskExport struct {
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

// ImportStats summarises what an import inserted.
type ImportStats struct {
	Projects int `json:"projects"`
	Tasks    int `json:"tasks"`
}

// Import replaces userID's board with the payload's contents.
//
// The wipe happens only after the payload passes validation, so a bad file
// never costs the user their data. The inserts themselves are not
// transactional across repositories; a mid-import failure leaves a partial
// board, which the user fixes by importing again.
func (s *ImportService) Import(ctx context.Context, userID string, payload ImportPayload) (*ImportStats, error) {
	if payload.Version != ImportFormatVersion {
		return nil, apperror.ValidationFailed("version",
			fmt.Sprintf("unsupported import version %q, expected %q", payload.Version, ImportFormatVersion))
	}
	for i, p := range payload.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return nil, apperror.ValidationFailed("projects",
				fmt.Sprintf("project %d has no name", i))
		}
	}
	for i, t := range payload.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return nil, apperror.ValidationFailed("tasks",
				fmt.Sprintf("task %d has no title", i))
		}
		if t.Status != "" && !validTaskStatus(t.Status) {
			return nil, apperror.ValidationFailed("tasks",
				fmt.Sprintf("task %d has invalid status %q", i, t.Status))
		}
		if t.Priority != "" && !validTaskPriority(t.Priority) {
			return nil, apperror.ValidationFailed("tasks",
				fmt.Sprintf("task %d has invalid priority %q", i, t.Priority))
		}
	}

	// Wipe. Tasks first: loose tasks have no project to cascade from.
	if err := s.tasks.DeleteAllByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("clearing tasks before import: %w", err)
	}
	if err := s.projects.DeleteAllByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("clearing projects before import: %w", err)
	}

	// Insert projects, remembering old ID → new ID.
	idMap := make(map[string]string, len(payload.Projects))
	for _, p := range payload.Projects {
		project := &model.Project{
			UserID: userID,
			Name:   strings.TrimSpace(p.Name),
			Title:  strings.TrimSpace(p.Title),
			Color:  strings.TrimSpace(p.Color),
		}
		if err := s.projects.Create(ctx, project); err != nil {
			return nil, fmt.Errorf("importing project %q: %w", project.Name, err)
		}
		if p.ID != "" {
			idMap[p.ID] = project.ID
		}
	}

	// Insert tasks. A project reference the payload doesn't define maps to
	// "" — the task comes in loose rather than failing the whole import.
	for _, t := range payload.Tasks {
		task := &model.Task{
			UserID:      userID,
			ProjectID:   idMap[t.ProjectID],
			Title:       strings.TrimSpace(t.Title),
			Description: strings.TrimSpace(t.Description),
			Date:        strings.TrimSpace(t.Date),
			StartTime:   strings.TrimSpace(t.StartTime),
			EndTime:     strings.TrimSpace(t.EndTime),
			Status:      t.Status,
			Priority:    t.Priority,
			Tags:        t.Tags,
			Categories:  t.Categories,
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, fmt.Errorf("importing task %q: %w", task.Title, err)
		}
	}

	stats := &ImportStats{
		Projects: len(payload.Projects),
		Tasks:    len(payload.Tasks),
	}

	s.logger.Info("board imported",
		slog.String("userID", userID),
		slog.Int("projects", stats.Projects),
		slog.Int("tasks", stats.Tasks),
	)

	return stats, nil
}
