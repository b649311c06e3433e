package server

import (
	"log/slog"
	"net/http"

	"cyberrange-server/internal/catalog"
	catalogHandlers "cyberrange-server/internal/catalog/handlers"
	"cyberrange-server/internal/controls"
	controlsHandlers "cyberrange-server/internal/controls/handlers"
	"cyberrange-server/internal/economy"
	economyHandlers "cyberrange-server/internal/economy/handlers"
	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/player"
	playerHandlers "cyberrange-server/internal/player/handlers"
	"cyberrange-server/internal/project"
	projectHandlers "cyberrange-server/internal/project/handlers"
	serverHandlers "cyberrange-server/internal/server/handlers"
	"cyberrange-server/internal/session"
	sessionHandlers "cyberrange-server/internal/session/handlers"
	"cyberrange-server/internal/shared/database"
	"cyberrange-server/internal/situation"
	situationHandlers "cyberrange-server/internal/situation/handlers"
	"cyberrange-server/internal/ws"
)

type Routes struct {
	db               *database.DB
	catalogs         catalog.Source
	playerService    *player.Service
	controlsService  *controls.Service
	situationService *situation.Service
	projectService   *project.Service
	economyService   *economy.Service
	sessionService   *session.Service
	hub              *ws.Hub
}

func NewRoutes(
	db *database.DB,
	catalogs catalog.Source,
	playerService *player.Service,
	controlsService *controls.Service,
	situationService *situation.Service,
	projectService *project.Service,
	economyService *economy.Service,
	sessionService *session.Service,
	hub *ws.Hub,
) *Routes {
	return &Routes{
		db:               db,
		catalogs:         catalogs,
		playerService:    playerService,
		controlsService:  controlsService,
		situationService: situationService,
		projectService:   projectService,
		economyService:   economyService,
		sessionService:   sessionService,
		hub:              hub,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db)
	catalogHandler := catalogHandlers.NewCatalogHandler(r.catalogs)
	playerHandler := playerHandlers.NewPlayerHandler(r.playerService)
	controlsHandler := controlsHandlers.NewControlsHandler(r.controlsService)
	situationHandler := situationHandlers.NewSituationHandler(r.situationService)
	projectHandler := projectHandlers.NewProjectHandler(r.projectService)
	budgetHandler := economyHandlers.NewBudgetHandler(r.economyService)
	sessionHandler := sessionHandlers.NewSessionHandler(r.sessionService)

	// Public endpoints
	mux.Handle("/api/server/health", healthHandler)
	mux.HandleFunc("/api/catalog/controls", catalogHandler.Controls)
	mux.HandleFunc("/api/catalog/threats", catalogHandler.Threats)
	mux.HandleFunc("/api/catalog/projects", catalogHandler.Projects)
	mux.HandleFunc("/ws", r.hub.ServeWs)

	// Protected endpoints (authenticated players)
	mux.Handle("/api/play", middleware.JWTMiddleware(http.HandlerFunc(playerHandler.Play)))
	mux.Handle("/api/getUserStats", middleware.JWTMiddleware(http.HandlerFunc(playerHandler.GetStats)))
	mux.Handle("/api/selectControls", middleware.JWTMiddleware(http.HandlerFunc(controlsHandler.Select)))
	mux.Handle("/api/situation", middleware.JWTMiddleware(http.HandlerFunc(situationHandler.Resolve)))
	mux.Handle("/api/specialProject", middleware.JWTMiddleware(http.HandlerFunc(projectHandler.Complete)))
	mux.Handle("/api/requestBudget", middleware.JWTMiddleware(http.HandlerFunc(budgetHandler.Request)))

	// Admin-only endpoints (authenticated + admin role)
	mux.Handle("/api/admin/startGame", middleware.RequireAdmin(http.HandlerFunc(sessionHandler.Start)))
	mux.Handle("/api/admin/stopGame", middleware.RequireAdmin(http.HandlerFunc(sessionHandler.Stop)))
	mux.Handle("/api/admin/session", middleware.RequireAdmin(http.HandlerFunc(sessionHandler.Status)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/catalog/controls", "/api/catalog/threats", "/api/catalog/projects", "/ws"},
		"protected_endpoints", []string{"/api/play", "/api/getUserStats", "/api/selectControls", "/api/situation", "/api/specialProject", "/api/requestBudget"},
		"admin_endpoints", []string{"/api/admin/startGame", "/api/admin/stopGame", "/api/admin/session"},
	)

	return mux
}
