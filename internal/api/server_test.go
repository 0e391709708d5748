package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameron-eth/firstballotETL/internal/api/handler"
	"github.com/cameron-eth/firstballotETL/internal/cache"
	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/provider"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func record(cat provider.Category, id string, week int, stats map[string]float64, points float64) provider.Record {
	return provider.Record{
		Category: cat, PlayerID: id, Name: "Player " + id, Position: "QB", Team: "BUF",
		Season: 2024, SeasonType: provider.SeasonRegular, Week: week,
		Stats: stats, FantasyPoints: points, FantasyPPG: points,
	}
}

func newTestServer(t *testing.T) (http.Handler, *store.SQLite, *cache.Memory) {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Migrate(ctx))

	_, err = st.UpsertBatch(ctx, provider.Passing, []provider.Record{
		record(provider.Passing, "qb1", 1, map[string]float64{"pass_yards": 250, "pass_touchdowns": 2}, 37),
		record(provider.Passing, "qb1", 2, map[string]float64{"pass_yards": 130}, 13),
	})
	require.NoError(t, err)
	_, err = st.UpsertBatch(ctx, provider.Rushing, []provider.Record{
		record(provider.Rushing, "qb1", 1, map[string]float64{"rush_yards": 40}, 4),
	})
	require.NoError(t, err)
	require.NoError(t, st.SaveRun(ctx, store.Run{
		ID: "run-1", Target: "sqlite", Category: provider.Passing, Season: 2024, Status: store.RunSucceeded,
		Upserted: 2, StartedAt: time.Now(), FinishedAt: time.Now(),
	}))

	mem := cache.NewMemory(ctx, true)
	cfg := &config.Config{CORSAllowOrigins: []string{"*"}, AdminToken: "secret"}
	return NewRouter(st, mem, cfg, quietLogger()), st, mem
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := get(t, h, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))

	rec = get(t, h, "/health/db", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"driver":"sqlite"`)
}

func TestCombinedIsCachedWithETag(t *testing.T) {
	h, _, _ := newTestServer(t)

	first := get(t, h, "/api/v1/combined?season=2024&week=1", nil)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	var body handler.CombinedResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, 37.0, body.Data[0].PassingPoints)
	assert.Equal(t, 4.0, body.Data[0].RushingPoints)
	assert.Equal(t, 41.0, body.Data[0].TotalPoints)
	assert.Equal(t, 100, body.Limit)

	second := get(t, h, "/api/v1/combined?season=2024&week=1", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	notModified := get(t, h, "/api/v1/combined?season=2024&week=1", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, notModified.Code)
}

func TestCombinedRejectsBadParams(t *testing.T) {
	h, _, _ := newTestServer(t)
	for _, target := range []string{
		"/api/v1/combined?season=abc",
		"/api/v1/combined?week=x",
		"/api/v1/combined?offset=-1",
	} {
		rec := get(t, h, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestPlayerSeason(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := get(t, h, "/api/v1/players/qb1/season?season=2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body handler.PlayerSeasonResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "REG", body.SeasonType)
	require.Len(t, body.Categories, 2)
	assert.Equal(t, provider.Passing, body.Categories[0].Category)
	assert.Equal(t, 2, body.Categories[0].Games)
	assert.Equal(t, 54.0, body.TotalPoints)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/players/nobody/season?season=2024", nil).Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/v1/players/qb1/season", nil).Code)
}

func TestListRuns(t *testing.T) {
	h, _, _ := newTestServer(t)
	rec := get(t, h, "/api/v1/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestAdminRefresh(t *testing.T) {
	h, _, mem := newTestServer(t)
	get(t, h, "/api/v1/combined?season=2024", nil)
	require.Equal(t, 1, mem.Stats(context.Background())["total_keys"])

	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/refresh", nil)
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, post("").Code)
	assert.Equal(t, http.StatusUnauthorized, post("wrong").Code)

	rec := post("secret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, mem.Stats(context.Background())["total_keys"], "refresh flushes the cache")
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	mw := AdminMiddleware("")
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := RateLimitMiddleware(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	do := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
