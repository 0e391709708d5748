// Package handler provides HTTP handlers for all API endpoints. Handlers
// read through the store and serve JSON from the response cache.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/api/respond"
	"github.com/cameron-eth/firstballotETL/internal/cache"
	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

// Store is the read surface the API needs.
type Store interface {
	Driver() string
	Combined(ctx context.Context, q store.CombinedQuery) ([]store.CombinedRecord, error)
	PlayerSeason(ctx context.Context, playerID string, season int, seasonType string) ([]store.SeasonAggregate, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	RefreshCombined(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store  Store
	cache  cache.Cache
	cfg    *config.Config
	logger *slog.Logger
}

// New creates a Handler.
func New(st Store, c cache.Cache, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{store: st, cache: c, cfg: cfg, logger: logger}
}

// Root serves API info at /.
// @Summary API root info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    "firstballot fantasy stats API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"backend": h.store.Driver(),
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Database health check failed", "error", err)
		respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"driver":    h.store.Driver(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"cache":     h.cache.Stats(r.Context()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// errNotFound makes serveCached answer 404 instead of caching an empty body.
var errNotFound = errors.New("not found")

// serveCached answers from the cache when possible, otherwise loads,
// marshals, and caches the value.
func (h *Handler) serveCached(w http.ResponseWriter, r *http.Request, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) {
	if data, etag, ok := h.cache.Get(r.Context(), key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteCached(w, data, etag, ttl, true)
		return
	}

	v, err := load(r.Context())
	if errors.Is(err, errNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Query failed", "key", key, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "QUERY_FAILED", "Failed to load data")
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_FAILED", "Failed to encode response")
		return
	}
	etag := h.cache.Set(r.Context(), key, data, ttl)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteCached(w, data, etag, ttl, false)
}
