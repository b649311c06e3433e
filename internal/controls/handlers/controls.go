package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cyberrange-server/internal/controls"
	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
)

type SelectControlsRequest struct {
	Controls []string `json:"controls"`
}

type ControlsHandler struct {
	service *controls.Service
}

func NewControlsHandler(service *controls.Service) *ControlsHandler {
	return &ControlsHandler{service: service}
}

// Select buys the requested controls for the authenticated player.
func (h *ControlsHandler) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "select_controls")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req SelectControlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validation("invalid request body"))
		return
	}

	result, err := h.service.Select(ctx, claims.PlayerID, req.Controls)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
