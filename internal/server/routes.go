package server

import (
	"log/slog"
	"net/http"

	"cosmos-server/internal/middleware"
	serverHandlers "cosmos-server/internal/server/handlers"
	"cosmos-server/internal/shared/database"
	"cosmos-server/internal/shared/redis"
	"cosmos-server/internal/universe"
	universeHandlers "cosmos-server/internal/universe/handlers"
)

type Routes struct {
	db              *database.DB
	redis           *redis.Client
	universeService *universe.Service
	logger          *slog.Logger
}

func NewRoutes(db *database.DB, redisClient *redis.Client, universeService *universe.Service, logger *slog.Logger) *Routes {
	return &Routes{
		db:              db,
		redis:           redisClient,
		universeService: universeService,
		logger:          logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.redis)
	universeHandler := universeHandlers.NewUniverseHandler(r.universeService, r.logger)

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)

	// Universe endpoints (authenticated, owner-scoped)
	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.JWTMiddleware(h)
	}

	mux.Handle("POST /universe", protected(universeHandler.CreateUniverse))
	mux.Handle("GET /universe", protected(universeHandler.ListUniverses))
	mux.Handle("GET /universe/{id}", protected(universeHandler.GetUniverse))
	mux.Handle("DELETE /universe/{id}", protected(universeHandler.DeleteUniverse))
	mux.Handle("POST /universe/{id}/simulate", protected(universeHandler.Simulate))
	mux.Handle("POST /universe/{id}/resolve-anomaly", protected(universeHandler.ResolveAnomaly))
	mux.Handle("POST /universe/{id}/cleanup-anomalies", protected(universeHandler.CleanupAnomalies))
	mux.Handle("GET /universe/{id}/stats", protected(universeHandler.GetStats))
	mux.Handle("GET /universe/{id}/anomalies", protected(universeHandler.GetAnomalies))
	mux.Handle("GET /universe/{id}/predictions", protected(universeHandler.GetPredictions))
	mux.Handle("GET /universe/{id}/end-conditions", protected(universeHandler.GetEndConditions))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health"},
		"protected_endpoints", []string{"/universe", "/universe/{id}", "/universe/{id}/simulate"},
	)

	return mux
}
