package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/taskboard/internal/apperror"
	"github.com/sakif/taskboard/internal/auth"
	"github.com/sakif/taskboard/internal/service"
)

// maxImportBytes caps the import payload at 5MB. A legitimate export of
// personal projects and tasks is a few hundred KB at most.
const maxImportBytes = 5 << 20

// ImportHandler restores a user's board from an exported JSON file.
type ImportHandler struct {
	importer *service.ImportService
	logger   *slog.Logger
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importer *service.ImportService, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{importer: importer, logger: logger}
}

// HandleImport replaces the user's projects and tasks with the payload.
//
// HTTP: POST /api/import
// BODY: {"version": "1.0", "projects": [...], "tasks": [...]}
//
// This is destructive — the service wipes the existing board before
// inserting, though only after the payload validates.
func (h *ImportHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Not authenticated"))
		return
	}

	var payload service.ImportPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err := dec.Decode(&payload); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid JSON body"))
		return
	}

	stats, err := h.importer.Import(r.Context(), userID, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Import completed successfully",
		"imported": stats,
	})
}
