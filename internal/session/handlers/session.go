package handlers

import (
	"log/slog"
	"net/http"

	"cyberrange-server/internal/session"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
)

type SessionHandler struct {
	service *session.Service
}

func NewSessionHandler(service *session.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

// Start activates the game session. Admin only.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "start_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sess, err := h.service.Start(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, sess)
}

// Stop deactivates the game session. Admin only.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "stop_game")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sess, err := h.service.Stop(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, sess)
}

// Status returns the current session document. Admin only.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "session_status")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	sess, err := h.service.Status(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, sess)
}
