package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cameron-eth/firstballotETL/internal/api/respond"
	"github.com/cameron-eth/firstballotETL/internal/cache"
	"github.com/cameron-eth/firstballotETL/internal/fantasy"
	"github.com/cameron-eth/firstballotETL/internal/provider"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

// CombinedResponse is one page of the combined view.
type CombinedResponse struct {
	Data   []store.CombinedRecord `json:"data"`
	Count  int                    `json:"count"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// PlayerSeasonResponse sums one player's season across categories.
type PlayerSeasonResponse struct {
	PlayerID    string                  `json:"player_gsis_id"`
	Season      int                     `json:"season"`
	SeasonType  string                  `json:"season_type"`
	Categories  []store.SeasonAggregate `json:"categories"`
	TotalPoints float64                 `json:"total_fantasy_points"`
}

// GetCombined returns rows of the combined player stats view.
// @Summary Combined weekly player stats
// @Description Weekly rows joining passing, rushing and receiving stats with per-category and total fantasy points, ordered by total points.
// @Tags stats
// @Produce json
// @Param season query int false "Season year"
// @Param season_type query string false "REG or POST"
// @Param week query int false "Week"
// @Param player_id query string false "GSIS player id"
// @Param position query string false "Position"
// @Param limit query int false "Page size (max 1000)"
// @Param offset query int false "Offset"
// @Success 200 {object} CombinedResponse
// @Failure 400 {object} respond.ErrorResponse
// @Router /combined [get]
func (h *Handler) GetCombined(w http.ResponseWriter, r *http.Request) {
	q, err := parseCombinedQuery(r)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	week := "all"
	if q.Week != nil {
		week = strconv.Itoa(*q.Week)
	}
	key := fmt.Sprintf("combined:%d:%s:%s:%s:%s:%d:%d",
		q.Season, q.SeasonType, week, q.PlayerID, q.Position, q.Limit, q.Offset)

	h.serveCached(w, r, key, cache.TTLCombined, func(ctx context.Context) (any, error) {
		rows, err := h.store.Combined(ctx, q)
		if err != nil {
			return nil, err
		}
		return CombinedResponse{Data: rows, Count: len(rows), Limit: q.Limit, Offset: q.Offset}, nil
	})
}

// GetPlayerSeason returns a player's season totals and averages.
// @Summary Player season fantasy summary
// @Tags stats
// @Produce json
// @Param playerID path string true "GSIS player id"
// @Param season query int true "Season year"
// @Param season_type query string false "REG (default) or POST"
// @Success 200 {object} PlayerSeasonResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /players/{playerID}/season [get]
func (h *Handler) GetPlayerSeason(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	season, ok, err := intParam(r, "season")
	if err != nil || !ok {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SEASON", "season query parameter is required and must be an integer")
		return
	}
	seasonType := provider.NormalizeSeasonType(r.URL.Query().Get("season_type"))
	key := fmt.Sprintf("player:%s:%d:%s", playerID, season, seasonType)

	h.serveCached(w, r, key, cache.TTLPlayerSeason, func(ctx context.Context) (any, error) {
		aggs, err := h.store.PlayerSeason(ctx, playerID, season, seasonType)
		if err != nil {
			return nil, err
		}
		if len(aggs) == 0 {
			return nil, fmt.Errorf("%w: no %s %d stats for player %s", errNotFound, seasonType, season, playerID)
		}
		resp := PlayerSeasonResponse{PlayerID: playerID, Season: season, SeasonType: seasonType, Categories: aggs}
		for _, a := range aggs {
			resp.TotalPoints += a.TotalPoints
		}
		resp.TotalPoints = fantasy.Round2(resp.TotalPoints)
		return resp, nil
	})
}

func parseCombinedQuery(r *http.Request) (store.CombinedQuery, error) {
	v := r.URL.Query()
	q := store.CombinedQuery{
		PlayerID: v.Get("player_id"),
		Position: strings.ToUpper(v.Get("position")),
	}
	if st := v.Get("season_type"); st != "" {
		q.SeasonType = provider.NormalizeSeasonType(st)
	}

	var err error
	var ok bool
	if q.Season, _, err = intParam(r, "season"); err != nil {
		return q, err
	}
	week, ok, err := intParam(r, "week")
	if err != nil {
		return q, err
	}
	if ok {
		q.Week = &week
	}
	if q.Limit, ok, err = intParam(r, "limit"); err != nil {
		return q, err
	}
	if !ok || q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = 100
	}
	if q.Offset, _, err = intParam(r, "offset"); err != nil {
		return q, err
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("offset must not be negative")
	}
	return q, nil
}

// intParam reads an optional integer query parameter.
func intParam(r *http.Request, name string) (int, bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer", name)
	}
	return n, true, nil
}
