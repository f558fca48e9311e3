package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmos-server/internal/cosmos"
	"cosmos-server/internal/middleware"
	"cosmos-server/internal/server"
	"cosmos-server/internal/shared/config"
	"cosmos-server/internal/shared/database"
	"cosmos-server/internal/shared/logger"
	"cosmos-server/internal/shared/redis"
	"cosmos-server/internal/universe"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	logger.Init()
	log := slog.With("component", "main")

	db, err := database.Connect()
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient, err := redis.Connect()
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	simCfg := config.GlobalConfig.Simulation
	tuning, err := cosmos.LoadTuning(simCfg.TuningPath)
	if err != nil {
		log.Error("Failed to load simulation tuning", "path", simCfg.TuningPath, "error", err)
		os.Exit(1)
	}

	universeRepo := universe.NewRepository(db, slog.With("component", "universe_repository"))
	simLocks := universe.NewSimLock(redisClient, simCfg.LockTTL, slog.With("component", "sim_lock"))
	universeService := universe.NewService(universeRepo, simLocks, tuning, simCfg.MaxStepsPerRequest, simCfg.RunTimeout, slog.With("component", "universe_service"))

	routes := server.NewRoutes(db, redisClient, universeService, slog.With("component", "handlers"))
	mux := routes.Setup()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:           config.GlobalConfig.RateLimit.Enabled,
		RequestsPerSecond: config.GlobalConfig.RateLimit.RequestsPerSecond,
		BurstSize:         config.GlobalConfig.RateLimit.BurstSize,
	})
	corsMiddleware := middleware.NewCORS()

	handler := corsMiddleware.Middleware(rateLimiter.Middleware(mux))

	serverCfg := config.GlobalConfig.Server
	srv := &http.Server{
		Addr:         ":" + serverCfg.Port,
		Handler:      handler,
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
		IdleTimeout:  serverCfg.IdleTimeout,
	}

	go func() {
		log.Info("Cosmos server starting",
			"port", serverCfg.Port,
			"environment", serverCfg.Environment,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}
