package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
	"cyberrange-server/internal/situation"
)

type ResolveSituationRequest struct {
	SituationID string `json:"situation_id"`
	OptionID    string `json:"option_id"`
}

type SituationHandler struct {
	service *situation.Service
}

func NewSituationHandler(service *situation.Service) *SituationHandler {
	return &SituationHandler{service: service}
}

// Resolve applies the chosen option of a situation to the authenticated
// player.
func (h *SituationHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "resolve_situation")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var req ResolveSituationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, errors.Validation("invalid request body"))
		return
	}

	result, err := h.service.Resolve(ctx, claims.PlayerID, req.SituationID, req.OptionID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
