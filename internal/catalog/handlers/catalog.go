package handlers

import (
	"log/slog"
	"net/http"

	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/shared/errors"
	"cyberrange-server/internal/shared/response"
)

type CatalogHandler struct {
	source catalog.Source
}

func NewCatalogHandler(source catalog.Source) *CatalogHandler {
	return &CatalogHandler{source: source}
}

// Controls returns the parsed controls catalog.
func (h *CatalogHandler) Controls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "catalog_controls")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	controls, err := h.source.Controls(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, controls)
}

// Threats returns the parsed threats catalog.
func (h *CatalogHandler) Threats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "catalog_threats")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	threats, err := h.source.Threats(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, threats)
}

// Projects returns the parsed projects catalog.
func (h *CatalogHandler) Projects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "catalog_projects")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	projects, err := h.source.Projects(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, projects)
}
