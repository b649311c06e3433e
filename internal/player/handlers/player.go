package handlers

import (
	"log/slog"
	"net/http"

	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
)

type PlayerHandler struct {
	service *player.Service
}

func NewPlayerHandler(service *player.Service) *PlayerHandler {
	return &PlayerHandler{service: service}
}

// Play registers the authenticated player for the running game.
func (h *PlayerHandler) Play(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "play")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	state, err := h.service.Join(ctx, claims.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, state)
}

// GetStats returns the authenticated player's full game document.
func (h *PlayerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_user_stats")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	state, err := h.service.GetStats(ctx, claims.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, state)
}
