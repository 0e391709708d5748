package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "fantasy.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func passing(id string, week int, yards, points float64) provider.Record {
	return provider.Record{
		Category:      provider.Passing,
		PlayerID:      id,
		Name:          "Player " + id,
		Position:      "QB",
		Team:          "KC",
		Season:        2024,
		SeasonType:    provider.SeasonRegular,
		Week:          week,
		Stats:         map[string]float64{"attempts": 30, "pass_yards": yards},
		FantasyPoints: points,
		FantasyPPG:    points,
		Efficiency:    map[string]float64{"fantasy_points_per_attempt": points / 30},
	}
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
	assert.Equal(t, "sqlite", s.Driver())
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	batch := []provider.Record{passing("qb1", 1, 250, 25), passing("qb1", 2, 300, 30)}

	res, err := s.UpsertBatch(ctx, provider.Passing, batch)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Upserted: 2}, res)

	res, err = s.UpsertBatch(ctx, provider.Passing, batch)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Unchanged: 2}, res, "re-applying an identical batch changes nothing")

	stored, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, []string{"qb1"})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestUpsertChangedValueUpdatesOnlyItsKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 250, 25), passing("qb1", 2, 300, 30)})
	require.NoError(t, err)

	res, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 250, 25), passing("qb1", 2, 310, 31)})
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{Upserted: 1, Unchanged: 1}, res)

	stored, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, []string{"qb1"})
	require.NoError(t, err)
	byWeek := map[int]provider.Record{}
	for _, r := range stored {
		byWeek[r.Week] = r
	}
	assert.Equal(t, 250.0, byWeek[1].Stat("pass_yards"))
	assert.Equal(t, 310.0, byWeek[2].Stat("pass_yards"))
	assert.Equal(t, 31.0, byWeek[2].FantasyPoints)
}

func TestUpsertNeverDeletes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 250, 25), passing("qb1", 2, 300, 30)})
	require.NoError(t, err)

	_, err = s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 3, 200, 20)})
	require.NoError(t, err)

	stored, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, []string{"qb1"})
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestUpsertBatchLastDuplicateWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 250, 25), passing("qb1", 1, 260, 26)})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)

	stored, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, []string{"qb1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 260.0, stored[0].Stat("pass_yards"))
}

func TestAbsentStatsStayNull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := passing("qb1", 1, 250, 25)
	rec.Name = ""

	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{rec})
	require.NoError(t, err)

	stored, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, []string{"qb1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Nil(t, stored[0].StatPtr("interceptions"))
	assert.NotNil(t, stored[0].StatPtr("pass_yards"))
	assert.Empty(t, stored[0].Name)
	assert.InDelta(t, 25.0/30, stored[0].Efficiency["fantasy_points_per_attempt"], 1e-9)
}

func TestLoadSeasonRecordsScopesToPlayersAndSeason(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	other := passing("qb2", 1, 100, 10)
	old := passing("qb1", 1, 100, 10)
	old.Season = 2023
	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 250, 25), other, old})
	require.NoError(t, err)

	stored, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, []string{"qb1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "qb1", stored[0].PlayerID)

	none, err := s.LoadSeasonRecords(ctx, provider.Passing, 2024, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCombinedDefaultsMissingCategoriesToZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 200, 20)})
	require.NoError(t, err)
	require.NoError(t, s.RefreshCombined(ctx))

	rows, err := s.Combined(ctx, CombinedQuery{Season: 2024})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "qb1", row.PlayerID)
	assert.Equal(t, "Player qb1", row.Name)
	assert.Equal(t, 20.0, row.PassingPoints)
	assert.Zero(t, row.RushingPoints)
	assert.Zero(t, row.ReceivingPoints)
	assert.Equal(t, 20.0, row.TotalPoints)
	assert.Equal(t, 200.0, row.Stats["pass_yards"])
	assert.Contains(t, row.Stats, "rush_yards")
	assert.Zero(t, row.Stats["rush_yards"])
	assert.Zero(t, row.Stats["receiving_yards"])
}

func TestCombinedFullOuterJoin(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 200, 20)})
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx, provider.Rushing, []provider.Record{{
		Category: provider.Rushing, PlayerID: "qb1", Season: 2024, SeasonType: "REG", Week: 1,
		Stats: map[string]float64{"rush_yards": 40}, FantasyPoints: 4,
	}, {
		Category: provider.Rushing, PlayerID: "rb1", Name: "Runner", Position: "RB", Season: 2024, SeasonType: "REG", Week: 1,
		Stats: map[string]float64{"rush_yards": 90}, FantasyPoints: 9,
	}})
	require.NoError(t, err)
	_, err = s.UpsertBatch(ctx, provider.Receiving, []provider.Record{{
		Category: provider.Receiving, PlayerID: "rb1", Season: 2024, SeasonType: "REG", Week: 1,
		Stats: map[string]float64{"receptions": 3, "yards": 25}, FantasyPoints: 5.5,
	}, {
		Category: provider.Receiving, PlayerID: "wr1", Name: "Catcher", Position: "WR", Season: 2024, SeasonType: "REG", Week: 2,
		Stats: map[string]float64{"receptions": 7}, FantasyPoints: 7,
	}})
	require.NoError(t, err)

	rows, err := s.Combined(ctx, CombinedQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byID := map[string]CombinedRecord{}
	for _, r := range rows {
		byID[r.PlayerID] = r
	}
	assert.Equal(t, 24.0, byID["qb1"].TotalPoints)
	assert.Equal(t, "Player qb1", byID["qb1"].Name, "identity comes from the first category that has it")
	assert.Equal(t, 14.5, byID["rb1"].TotalPoints)
	assert.Equal(t, "Runner", byID["rb1"].Name)
	assert.Equal(t, 25.0, byID["rb1"].Stats["receiving_yards"])
	assert.Equal(t, 7.0, byID["wr1"].TotalPoints)
	assert.Equal(t, 2, byID["wr1"].Week)

	week := 2
	rows, err = s.Combined(ctx, CombinedQuery{Week: &week, Position: "wr"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "wr1", rows[0].PlayerID)

	rows, err = s.Combined(ctx, CombinedQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "qb1", rows[0].PlayerID, "ordered by total points")
}

func TestPlayerSeason(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a, b := passing("qb1", 1, 260, 26), passing("qb1", 2, 130, 13)
	a.FantasyPPG, b.FantasyPPG = 19.5, 19.5
	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{a, b})
	require.NoError(t, err)

	aggs, err := s.PlayerSeason(ctx, "qb1", 2024, "regular")
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, provider.Passing, aggs[0].Category)
	assert.Equal(t, 2, aggs[0].Games)
	assert.Equal(t, 39.0, aggs[0].TotalPoints)
	assert.Equal(t, 19.5, aggs[0].PPG)
	assert.Equal(t, "Player qb1", aggs[0].Name)

	aggs, err = s.PlayerSeason(ctx, "nobody", 2024, "REG")
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	old := passing("qb1", 1, 100, 10)
	old.Season = 2023
	_, err := s.UpsertBatch(ctx, provider.Passing, []provider.Record{passing("qb1", 1, 250, 25), passing("qb1", 2, 250, 25), old})
	require.NoError(t, err)

	n, err := s.Clear(ctx, provider.Passing, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	kept, err := s.LoadSeasonRecords(ctx, provider.Passing, 2023, []string{"qb1"})
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestRunLedger(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC)
	offset := 1000

	require.NoError(t, s.SaveRun(ctx, Run{
		ID: "run-old", Target: "sqlite", Category: provider.Passing, Season: 2023,
		Status: RunSucceeded, Fetched: 10, Upserted: 10,
		StartedAt: base.Add(-48 * time.Hour), FinishedAt: base.Add(-48*time.Hour + time.Minute),
	}))
	require.NoError(t, s.SaveRun(ctx, Run{
		ID: "run-new", Target: "sqlite", Category: provider.Rushing, Season: 2024,
		Status: RunFailed, Fetched: 2500, Upserted: 1000, FailedBatchOffset: &offset, Error: "boom",
		StartedAt: base, FinishedAt: base.Add(time.Minute),
	}))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, RunFailed, runs[0].Status)
	require.NotNil(t, runs[0].FailedBatchOffset)
	assert.Equal(t, 1000, *runs[0].FailedBatchOffset)
	assert.Equal(t, "boom", runs[0].Error)
	assert.True(t, runs[0].StartedAt.Equal(base))
	assert.Nil(t, runs[1].FailedBatchOffset)

	n, err := s.PruneRuns(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err = s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-new", runs[0].ID)
}

func TestPostgresStatements(t *testing.T) {
	sql := upsertSQL(postgresDialect, provider.Receiving.Spec())
	assert.Contains(t, sql, "ON CONFLICT (player_gsis_id, season, season_type, week) DO UPDATE SET")
	assert.Contains(t, sql, "IS DISTINCT FROM")
	assert.Contains(t, sql, "updated_at = NOW()")
	assert.Contains(t, sql, "$23")
	assert.NotContains(t, sql, "$24")

	view := strings.Join(combinedViewStatements(postgresDialect), ";\n")
	assert.Contains(t, view, "CREATE MATERIALIZED VIEW IF NOT EXISTS master_player_stats")
	assert.Contains(t, view, "CREATE UNIQUE INDEX IF NOT EXISTS master_player_stats_key")
	assert.Equal(t, "REFRESH MATERIALIZED VIEW CONCURRENTLY master_player_stats", refreshCombinedSQL(postgresDialect))
	assert.Empty(t, refreshCombinedSQL(sqliteDialect))
}

func TestDedupeKeepsFirstSeenOrder(t *testing.T) {
	out := dedupe([]provider.Record{passing("a", 1, 1, 1), passing("b", 1, 1, 1), passing("a", 1, 2, 2)})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].PlayerID)
	assert.Equal(t, 2.0, out[0].Stat("pass_yards"))
	assert.Equal(t, "b", out[1].PlayerID)
}
