package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/api/respond"
	"github.com/cameron-eth/firstballotETL/internal/cache"
)

// ListRuns returns the most recent ingestion runs.
// @Summary Ingestion run ledger
// @Tags ingestion
// @Produce json
// @Param limit query int false "Max runs (default 50)"
// @Success 200 {array} store.Run
// @Failure 400 {object} respond.ErrorResponse
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _, err := intParam(r, "limit")
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	h.serveCached(w, r, fmt.Sprintf("runs:%d", limit), cache.TTLRuns, func(ctx context.Context) (any, error) {
		return h.store.ListRuns(ctx, limit)
	})
}

// RefreshCombined rebuilds the combined view and drops cached responses.
// @Summary Refresh the combined view
// @Tags admin
// @Produce json
// @Param X-Admin-Token header string true "Admin token"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} respond.ErrorResponse
// @Failure 403 {object} respond.ErrorResponse
// @Failure 500 {object} respond.ErrorResponse
// @Router /admin/refresh [post]
func (h *Handler) RefreshCombined(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.store.RefreshCombined(r.Context()); err != nil {
		h.logger.Error("Combined view refresh failed", "error", err)
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh combined view", err.Error())
		return
	}
	if err := h.cache.Flush(r.Context()); err != nil {
		h.logger.Warn("Cache flush failed", "error", err)
	}
	dur := time.Since(start)
	h.logger.Info("Combined view refreshed via API", "duration_ms", dur.Milliseconds())
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":      "refreshed",
		"duration_ms": dur.Milliseconds(),
	})
}
