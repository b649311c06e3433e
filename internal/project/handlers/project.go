package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/project"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
)

type CompleteProjectRequest struct {
	ProjectID string `json:"project_id"`
}

type ProjectHandler struct {
	service *project.Service
}

func NewProjectHandler(service *project.Service) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Complete finishes a special project for the authenticated player.
func (h *ProjectHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "special_project")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req CompleteProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validation("invalid request body"))
		return
	}

	result, err := h.service.Complete(ctx, claims.PlayerID, req.ProjectID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
