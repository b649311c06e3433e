package handlers

import (
	"log/slog"
	"net/http"

	"cyberrange-server/internal/economy"
	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
)

type BudgetHandler struct {
	service *economy.Service
}

func NewBudgetHandler(service *economy.Service) *BudgetHandler {
	return &BudgetHandler{service: service}
}

// Request grants the authenticated player extra budget when they are
// flagged as underfunded.
func (h *BudgetHandler) Request(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "request_budget")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	result, err := h.service.RequestBudget(ctx, claims.PlayerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
