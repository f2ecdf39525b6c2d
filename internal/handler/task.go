package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/repository"
	"github.com/sakif/taskboard/internal/service"
)

// TaskHandler manages CRUD operations for tasks.
type TaskHandler struct {
	tasks  *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// HandleCreate saves a new task.
//
// HTTP: POST /api/tasks
// BODY: {"title": "...", "projectId": "...", "date": "2026-09-01", ...}
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	var in service.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	task, err := h.tasks.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// HandleList returns the user's tasks, narrowed by optional query filters.
//
// HTTP: GET /api/tasks?projectId=...&date=2026-09-01&status=pending
//
// Filters compose with AND. Unknown query parameters are ignored; an
// invalid status value is a 400.
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	q := r.URL.Query()
	filter := repository.TaskFilter{
		ProjectID: q.Get("projectId"),
		Date:      q.Get("date"),
		Status:    q.Get("status"),
	}

	tasks, err := h.tasks.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// HandleGet returns a single task.
//
// HTTP: GET /api/tasks/{id}
func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	task, err := h.tasks.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleUpdate applies a partial update to a task.
//
// HTTP: PUT /api/tasks/{id}
// BODY: any subset of the task's client-settable fields
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	var in service.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	task, err := h.tasks.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleDelete removes a task.
//
// HTTP: DELETE /api/tasks/{id}
func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	if err := h.tasks.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}
