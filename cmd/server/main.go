package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyberrange-server/internal/attack"
	"cyberrange-server/internal/catalog"
	"cyberrange-server/internal/controls"
	"cyberrange-server/internal/economy"
	"cyberrange-server/internal/middleware"
	"cyberrange-server/internal/player"
	"cyberrange-server/internal/project"
	"cyberrange-server/internal/scheduler"
	"cyberrange-server/internal/server"
	"cyberrange-server/internal/session"
	"cyberrange-server/internal/shared/config"
	"cyberrange-server/internal/shared/database"
	"cyberrange-server/internal/shared/logger"
	"cyberrange-server/internal/shared/redis"
	"cyberrange-server/internal/situation"
	"cyberrange-server/internal/stats"
	"cyberrange-server/internal/ws"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := config.GlobalConfig

	logger.Init()
	slog.Info("Starting cyber range server",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port)

	db, err := database.Connect()
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.Connect()
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	hub := ws.NewHub()
	go hub.Run()

	catalogs := catalog.NewCachedSource(catalog.NewRepository(db), redisClient)
	playerRepo := player.NewRepository(db)
	sessionRepo := session.NewRepository(db)

	playerService := player.NewService(playerRepo, cfg.Game)
	controlsService := controls.NewService(playerRepo, catalogs, cfg.Game)
	situationService := situation.NewService(playerRepo, catalogs, cfg.Game)
	projectService := project.NewService(playerRepo, catalogs, cfg.Game)
	economyService := economy.NewService(playerRepo, catalogs, cfg.Game)
	sessionService := session.NewService(sessionRepo, catalogs, hub)
	settleService := attack.NewService(playerRepo, catalogs, cfg.Game)
	statsService := stats.NewService(playerRepo, sessionRepo, cfg.Game)

	attackCycle := attack.NewCycle(sessionRepo, playerRepo, catalogs, settleService, hub, cfg.Game)
	situationCycle := situation.NewCycle(sessionRepo, catalogs, hub, cfg.Game)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New()
	sched.Add(scheduler.Job{Name: "attack", Interval: cfg.Game.AttackInterval, Run: attackCycle.Run})
	sched.Add(scheduler.Job{Name: "situation", Interval: cfg.Game.SituationInterval, Run: situationCycle.Run})
	sched.Add(scheduler.Job{Name: "stats", Interval: cfg.Game.StatsInterval, Run: func(ctx context.Context) error {
		_, err := statsService.Recalculate(ctx)
		return err
	}})
	sched.Start(ctx)

	routes := server.NewRoutes(db, catalogs, playerService, controlsService, situationService, projectService, economyService, sessionService, hub)
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		Enabled:           cfg.RateLimit.Enabled,
	})
	handler := middleware.NewCORS().Middleware(rateLimiter.Middleware(mux))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		slog.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}
