// Package store persists scored records into the three category tables and
// reads them back: the combined view, per-player season aggregates, and the
// ingestion run ledger.
//
// Postgres (pgx) is the production backend; SQLite (modernc) serves local
// runs and tests. Both share one generated schema and one set of queries,
// differing only in dialect and transaction plumbing.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// Store is the persistence surface shared by both backends.
type Store interface {
	Driver() string
	Migrate(ctx context.Context) error
	UpsertBatch(ctx context.Context, cat provider.Category, recs []provider.Record) (UpsertResult, error)
	LoadSeasonRecords(ctx context.Context, cat provider.Category, season int, playerIDs []string) ([]provider.Record, error)
	RefreshCombined(ctx context.Context) error
	Combined(ctx context.Context, q CombinedQuery) ([]CombinedRecord, error)
	PlayerSeason(ctx context.Context, playerID string, season int, seasonType string) ([]SeasonAggregate, error)
	Clear(ctx context.Context, cat provider.Category, season int) (int64, error)
	SaveRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	PruneRuns(ctx context.Context, before time.Time) (int64, error)
	Notify(ctx context.Context, payload string) error
	Ping(ctx context.Context) error
	Close()
}

// UpsertResult counts the rows one batch changed. A row whose stored values
// already match is unchanged and does not count as upserted.
type UpsertResult struct {
	Upserted  int
	Unchanged int
}

// SeasonAggregate summarizes one player's season in one category.
type SeasonAggregate struct {
	Category    provider.Category `json:"category"`
	PlayerID    string            `json:"player_gsis_id"`
	Name        string            `json:"player_display_name,omitempty"`
	Season      int               `json:"season"`
	SeasonType  string            `json:"season_type"`
	Games       int               `json:"games"`
	TotalPoints float64           `json:"total_fantasy_points"`
	PPG         float64           `json:"fantasy_ppg"`
}

// Open connects to the target's database.
func Open(ctx context.Context, cfg *config.Config, target config.Target) (Store, error) {
	switch target.Driver {
	case config.DriverPostgres:
		pg, err := OpenPostgres(ctx, cfg, target.URL)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", target.Label, err)
		}
		return pg, nil
	case config.DriverSQLite:
		lite, err := OpenSQLite(ctx, target.URL)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", target.Label, err)
		}
		return lite, nil
	}
	return nil, fmt.Errorf("target %s: unknown driver %q", target.Label, target.Driver)
}

// querier is the subset of pgx and database/sql the shared queries need.
type querier interface {
	exec(ctx context.Context, sql string, args ...any) (int64, error)
	query(ctx context.Context, sql string, args []any, row func(scan func(dest ...any) error) error) error
}

// core implements every query that differs between backends only by dialect.
type core struct {
	d dialect
	q querier
}

func (c core) Driver() string { return c.d.name }

// Migrate creates the category tables, run ledger, and combined view.
func (c core) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements(c.d) {
		if _, err := c.q.exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, firstLine(stmt))
		}
	}
	return nil
}

// LoadSeasonRecords returns every stored record of cat for the given players
// in season, across all season types and weeks.
func (c core) LoadSeasonRecords(ctx context.Context, cat provider.Category, season int, playerIDs []string) ([]provider.Record, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}
	spec := cat.Spec()
	cols := spec.RecordColumns()

	var out []provider.Record
	for _, ids := range chunkStrings(playerIDs, 500) {
		args := make([]any, 0, len(ids)+1)
		args = append(args, season)
		for _, id := range ids {
			args = append(args, id)
		}
		sql := fmt.Sprintf("SELECT %s FROM %s WHERE season = %s AND player_gsis_id IN (%s)",
			strings.Join(cols, ", "), spec.Table, c.d.placeholder(1), c.d.placeholders(2, len(ids)))

		err := c.q.query(ctx, sql, args, func(scan func(dest ...any) error) error {
			rec, err := scanRecord(spec, scan)
			if err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("load %s season %d: %w", cat, season, err)
		}
	}
	return out, nil
}

// Combined reads the combined view.
func (c core) Combined(ctx context.Context, q CombinedQuery) ([]CombinedRecord, error) {
	sql, args := combinedQuerySQL(c.d, q)
	out := []CombinedRecord{}
	err := c.q.query(ctx, sql, args, func(scan func(dest ...any) error) error {
		rec, err := scanCombined(scan)
		if err != nil {
			return err
		}
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", config.CombinedView, err)
	}
	return out, nil
}

// PlayerSeason returns one aggregate per category the player appears in.
func (c core) PlayerSeason(ctx context.Context, playerID string, season int, seasonType string) ([]SeasonAggregate, error) {
	seasonType = provider.NormalizeSeasonType(seasonType)
	out := []SeasonAggregate{}
	for _, cat := range provider.Categories() {
		sql := fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(fantasy_points), 0), COALESCE(MAX(fantasy_ppg), 0), MAX(player_display_name)
			FROM %s WHERE player_gsis_id = %s AND season = %s AND season_type = %s`,
			cat.Spec().Table, c.d.placeholder(1), c.d.placeholder(2), c.d.placeholder(3))

		agg := SeasonAggregate{Category: cat, PlayerID: playerID, Season: season, SeasonType: seasonType}
		var name *string
		err := c.q.query(ctx, sql, []any{playerID, season, seasonType}, func(scan func(dest ...any) error) error {
			return scan(&agg.Games, &agg.TotalPoints, &agg.PPG, &name)
		})
		if err != nil {
			return nil, fmt.Errorf("player season %s: %w", cat, err)
		}
		if agg.Games == 0 {
			continue
		}
		agg.Name = deref(name)
		out = append(out, agg)
	}
	return out, nil
}

// Clear deletes every row of cat for season. It is the only delete path for
// category data; ingestion never removes rows.
func (c core) Clear(ctx context.Context, cat provider.Category, season int) (int64, error) {
	n, err := c.q.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE season = %s", cat.Spec().Table, c.d.placeholder(1)), season)
	if err != nil {
		return 0, fmt.Errorf("clear %s season %d: %w", cat, season, err)
	}
	return n, nil
}

func scanRecord(spec provider.CategorySpec, scan func(dest ...any) error) (provider.Record, error) {
	rec := provider.Record{Category: spec.Category}
	var name, position, team *string
	statCols := spec.StatColumns()
	stats := make([]*float64, len(statCols))
	eff := make([]*float64, len(spec.Efficiency))

	dest := []any{&rec.PlayerID, &rec.Season, &rec.SeasonType, &rec.Week, &name, &position, &team}
	for i := range stats {
		dest = append(dest, &stats[i])
	}
	dest = append(dest, &rec.FantasyPoints, &rec.FantasyPPG)
	for i := range eff {
		dest = append(dest, &eff[i])
	}

	if err := scan(dest...); err != nil {
		return rec, fmt.Errorf("scan %s row: %w", spec.Table, err)
	}

	rec.Name, rec.Position, rec.Team = deref(name), deref(position), deref(team)
	rec.Stats = make(map[string]float64, len(statCols))
	for i, col := range statCols {
		if stats[i] != nil {
			rec.Stats[col] = *stats[i]
		}
	}
	rec.Efficiency = make(map[string]float64, len(eff))
	for i, col := range spec.Efficiency {
		if eff[i] != nil {
			rec.Efficiency[col] = *eff[i]
		}
	}
	return rec, nil
}

// dedupe keeps the last record for each natural key, preserving first-seen
// order.
func dedupe(recs []provider.Record) []provider.Record {
	pos := make(map[provider.Key]int, len(recs))
	out := make([]provider.Record, 0, len(recs))
	for _, r := range recs {
		if i, ok := pos[r.Key()]; ok {
			out[i] = r
			continue
		}
		pos[r.Key()] = len(out)
		out = append(out, r)
	}
	return out
}

func chunkStrings(s []string, n int) [][]string {
	var out [][]string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
