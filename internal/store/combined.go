package store

import (
	"fmt"
	"strings"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// CombinedRecord is one row of the combined view: a player's week across
// every category, with absent categories reading as zero.
type CombinedRecord struct {
	PlayerID        string             `json:"player_gsis_id"`
	Name            string             `json:"player_display_name"`
	Position        string             `json:"player_position"`
	Team            string             `json:"team_abbr"`
	Season          int                `json:"season"`
	SeasonType      string             `json:"season_type"`
	Week            int                `json:"week"`
	Stats           map[string]float64 `json:"stats"`
	PassingPoints   float64            `json:"passing_fantasy_points"`
	RushingPoints   float64            `json:"rushing_fantasy_points"`
	ReceivingPoints float64            `json:"receiving_fantasy_points"`
	TotalPoints     float64            `json:"total_fantasy_points"`
}

// CombinedQuery filters the combined view. Zero values mean no filter.
type CombinedQuery struct {
	Season     int
	SeasonType string
	Week       *int
	PlayerID   string
	Position   string
	Limit      int
	Offset     int
}

// View column names that would be ambiguous without their category.
var viewAliases = map[string]string{
	"yards": "receiving_yards",
}

var tableAliases = map[provider.Category]string{
	provider.Passing:   "pa",
	provider.Rushing:   "ru",
	provider.Receiving: "re",
}

// viewStatColumns returns (view column, category, source column) for every
// basic stat in join order.
type viewStat struct {
	name   string
	cat    provider.Category
	source string
}

func viewStatColumns() []viewStat {
	var out []viewStat
	for _, cat := range provider.Categories() {
		for _, col := range cat.Spec().Basic {
			name := col
			if alias, ok := viewAliases[col]; ok {
				name = alias
			}
			out = append(out, viewStat{name: name, cat: cat, source: col})
		}
	}
	return out
}

func pointsColumn(cat provider.Category) string {
	return string(cat) + "_fantasy_points"
}

// combinedColumns returns the view's columns in select order.
func combinedColumns() []string {
	cols := append([]string{}, provider.KeyColumns...)
	cols = append(cols, provider.IdentityColumns...)
	for _, vs := range viewStatColumns() {
		cols = append(cols, vs.name)
	}
	for _, cat := range provider.Categories() {
		cols = append(cols, pointsColumn(cat))
	}
	return append(cols, "total_fantasy_points")
}

// coalesceAll returns COALESCE(pa.col, ru.col, re.col).
func coalesceAll(col string) string {
	parts := make([]string, 0, 3)
	for _, cat := range provider.Categories() {
		parts = append(parts, tableAliases[cat]+"."+col)
	}
	return "COALESCE(" + strings.Join(parts, ", ") + ")"
}

// combinedSelectSQL is the full outer join of the three category tables on
// the natural key. Identity columns take the first non-null value in
// category order; numeric columns default to zero.
func combinedSelectSQL() string {
	var sel []string
	for _, col := range provider.KeyColumns {
		sel = append(sel, fmt.Sprintf("%s AS %s", coalesceAll(col), col))
	}
	for _, col := range provider.IdentityColumns {
		sel = append(sel, fmt.Sprintf("%s AS %s", coalesceAll(col), col))
	}
	for _, vs := range viewStatColumns() {
		sel = append(sel, fmt.Sprintf("COALESCE(%s.%s, 0) AS %s", tableAliases[vs.cat], vs.source, vs.name))
	}
	var total []string
	for _, cat := range provider.Categories() {
		expr := fmt.Sprintf("COALESCE(%s.fantasy_points, 0)", tableAliases[cat])
		sel = append(sel, fmt.Sprintf("%s AS %s", expr, pointsColumn(cat)))
		total = append(total, expr)
	}
	sel = append(sel, strings.Join(total, " + ")+" AS total_fantasy_points")

	pa, ru, re := tableAliases[provider.Passing], tableAliases[provider.Rushing], tableAliases[provider.Receiving]
	var joinRu, joinRe []string
	for _, col := range provider.KeyColumns {
		joinRu = append(joinRu, fmt.Sprintf("%s.%s = %s.%s", ru, col, pa, col))
		joinRe = append(joinRe, fmt.Sprintf("%s.%s = COALESCE(%s.%s, %s.%s)", re, col, pa, col, ru, col))
	}

	return fmt.Sprintf("SELECT\n\t%s\nFROM %s %s\nFULL OUTER JOIN %s %s ON %s\nFULL OUTER JOIN %s %s ON %s",
		strings.Join(sel, ",\n\t"),
		provider.Passing.Spec().Table, pa,
		provider.Rushing.Spec().Table, ru, strings.Join(joinRu, " AND "),
		provider.Receiving.Spec().Table, re, strings.Join(joinRe, " AND "),
	)
}

// combinedViewStatements returns the DDL for the combined view. Postgres gets
// a materialized view with the unique index REFRESH ... CONCURRENTLY needs;
// SQLite gets a plain view, which is always current.
func combinedViewStatements(d dialect) []string {
	if !d.materialized {
		return []string{fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS\n%s", config.CombinedView, combinedSelectSQL())}
	}
	return []string{
		fmt.Sprintf("CREATE MATERIALIZED VIEW IF NOT EXISTS %s AS\n%s", config.CombinedView, combinedSelectSQL()),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_key ON %s (%s)",
			config.CombinedView, config.CombinedView, strings.Join(provider.KeyColumns, ", ")),
	}
}

// refreshCombinedSQL returns the refresh statement, or "" when the view needs
// no refresh.
func refreshCombinedSQL(d dialect) string {
	if !d.materialized {
		return ""
	}
	return "REFRESH MATERIALIZED VIEW CONCURRENTLY " + config.CombinedView
}

// combinedQuerySQL builds the filtered read over the view.
func combinedQuerySQL(d dialect, q CombinedQuery) (string, []any) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, d.placeholder(len(args))))
	}
	if q.Season != 0 {
		add("season = %s", q.Season)
	}
	if q.SeasonType != "" {
		add("season_type = %s", provider.NormalizeSeasonType(q.SeasonType))
	}
	if q.Week != nil {
		add("week = %s", *q.Week)
	}
	if q.PlayerID != "" {
		add("player_gsis_id = %s", q.PlayerID)
	}
	if q.Position != "" {
		add("player_position = %s", strings.ToUpper(q.Position))
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(combinedColumns(), ", "), config.CombinedView)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY total_fantasy_points DESC, player_gsis_id, season, week"

	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	sql += " LIMIT " + d.placeholder(len(args))
	if q.Offset > 0 {
		args = append(args, q.Offset)
		sql += " OFFSET " + d.placeholder(len(args))
	}
	return sql, args
}

// scanCombined reads one view row in combinedColumns order.
func scanCombined(scan func(dest ...any) error) (CombinedRecord, error) {
	var rec CombinedRecord
	var name, position, team *string
	stats := viewStatColumns()
	vals := make([]float64, len(stats))

	dest := []any{&rec.PlayerID, &rec.Season, &rec.SeasonType, &rec.Week, &name, &position, &team}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	dest = append(dest, &rec.PassingPoints, &rec.RushingPoints, &rec.ReceivingPoints, &rec.TotalPoints)

	if err := scan(dest...); err != nil {
		return rec, fmt.Errorf("scan combined row: %w", err)
	}

	rec.Name, rec.Position, rec.Team = deref(name), deref(position), deref(team)
	rec.Stats = make(map[string]float64, len(stats))
	for i, vs := range stats {
		rec.Stats[vs.name] = vals[i]
	}
	return rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
