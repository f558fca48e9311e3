package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cosmos-server/internal/auth"
	"cosmos-server/internal/middleware"
	apperrors "cosmos-server/internal/shared/errors"
	"cosmos-server/internal/shared/response"
	"cosmos-server/internal/universe"
)

type UniverseHandler struct {
	service *universe.Service
	logger  *slog.Logger
}

func NewUniverseHandler(service *universe.Service, logger *slog.Logger) *UniverseHandler {
	return &UniverseHandler{
		service: service,
		logger:  logger,
	}
}

// CreateUniverse handles POST /universe
func (h *UniverseHandler) CreateUniverse(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "create_universe")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, apperrors.Unauthorized("authentication required"))
		return
	}

	var req universe.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, apperrors.WrapValidation("invalid request body", err))
		return
	}

	created, err := h.service.Create(r.Context(), claims.UserID, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, universe.UniverseResponse{OK: true, Universe: created})
}

// ListUniverses handles GET /universe
func (h *UniverseHandler) ListUniverses(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "list_universes")

	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		response.Error(w, r, logger, apperrors.Unauthorized("authentication required"))
		return
	}

	summaries, err := h.service.List(r.Context(), claims.UserID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if summaries == nil {
		summaries = []universe.Summary{}
	}

	response.Success(w, http.StatusOK, universe.ListResponse{OK: true, Universes: summaries})
}

// GetUniverse handles GET /universe/{id}
func (h *UniverseHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "get_universe")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	u, err := h.service.Get(r.Context(), claims.UserID, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.UniverseResponse{OK: true, Universe: u})
}

// DeleteUniverse handles DELETE /universe/{id}
func (h *UniverseHandler) DeleteUniverse(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "delete_universe")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), claims.UserID, id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.DeleteResponse{OK: true, Deleted: id})
}

// Simulate handles POST /universe/{id}/simulate
func (h *UniverseHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "simulate_universe")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req universe.SimulateRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, u, err := h.service.Simulate(r.Context(), claims.UserID, id, req.Steps)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.SimulateResponse{OK: true, Report: result, Universe: u})
}

// ResolveAnomaly handles POST /universe/{id}/resolve-anomaly
func (h *UniverseHandler) ResolveAnomaly(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "resolve_anomaly")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req universe.ResolveAnomalyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, logger, apperrors.WrapValidation("invalid request body", err))
		return
	}

	resolution, err := h.service.ResolveAnomaly(r.Context(), claims.UserID, id, req.AnomalyID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.ResolveAnomalyResponse{OK: true, Resolution: resolution})
}

// GetStats handles GET /universe/{id}/stats
func (h *UniverseHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "universe_stats")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	stats, err := h.service.Stats(r.Context(), claims.UserID, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.StatsResponse{OK: true, Stats: *stats})
}

// GetAnomalies handles GET /universe/{id}/anomalies
func (h *UniverseHandler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "universe_anomalies")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	active, resolved, err := h.service.Anomalies(r.Context(), claims.UserID, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.AnomaliesResponse{OK: true, Active: active, Resolved: resolved})
}

// GetPredictions handles GET /universe/{id}/predictions
func (h *UniverseHandler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "universe_predictions")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	report, err := h.service.Predictions(r.Context(), claims.UserID, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.PredictionsResponse{OK: true, Predictions: report})
}

// GetEndConditions handles GET /universe/{id}/end-conditions
func (h *UniverseHandler) GetEndConditions(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "universe_end_conditions")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	status, warnings, err := h.service.EndConditions(r.Context(), claims.UserID, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.EndConditionsResponse{OK: true, Status: *status, Warnings: warnings})
}

// CleanupAnomalies handles POST /universe/{id}/cleanup-anomalies
func (h *UniverseHandler) CleanupAnomalies(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("handler", "cleanup_anomalies")

	claims, id, err := h.authedID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	req := universe.CleanupRequest{KeepRecentMinutes: 5}
	if err := decodeOptionalBody(r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	removed, remaining, err := h.service.CleanupAnomalies(r.Context(), claims.UserID, id, req.KeepRecentMinutes)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, universe.CleanupResponse{OK: true, Removed: removed, Remaining: remaining})
}

// authedID extracts the authenticated claims and the {id} path value shared
// by every per-universe endpoint.
func (h *UniverseHandler) authedID(r *http.Request) (*auth.Claims, string, error) {
	claims := middleware.GetUserFromContext(r)
	if claims == nil {
		return nil, "", apperrors.Unauthorized("authentication required")
	}

	id := r.PathValue("id")
	if id == "" {
		return nil, "", apperrors.Validation("universe id is required")
	}

	return claims, id, nil
}

func decodeOptionalBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.WrapValidation("invalid request body", err)
	}
	return nil
}
