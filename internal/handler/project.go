package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/service"
)

// ProjectHandler manages CRUD operations for projects.
//
// All routes here sit behind RequireAuth, so the userID is always in the
// request context; the handler threads it into every service call and the
// lower layers enforce ownership from there.
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projects: projects, logger: logger}
}

// HandleCreate saves a new project.
//
// HTTP: POST /api/projects
// BODY: {"name": "work", "title": "Work board", "color": "#3366ff"}
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	var in service.ProjectInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	project, err := h.projects.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// HandleList returns all of the user's projects.
//
// HTTP: GET /api/projects
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// HandleGet returns a single project.
//
// HTTP: GET /api/projects/{id}
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	project, err := h.projects.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleUpdate applies a partial update to a project.
//
// HTTP: PUT /api/projects/{id}
// BODY: any subset of {"name", "title", "color"}
func (h *ProjectHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	var in service.ProjectUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	project, err := h.projects.Update(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// HandleDelete removes a project and its tasks.
//
// HTTP: DELETE /api/projects/{id}
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	if err := h.projects.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted successfully"})
}
