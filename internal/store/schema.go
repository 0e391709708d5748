package store

import (
	"fmt"
	"strings"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// dialect captures the SQL differences between Postgres and SQLite. Every
// statement in this package is generated from the provider column specs
// through a dialect, so both backends share one schema definition.
type dialect struct {
	name         string
	floatType    string
	timeType     string
	now          string
	distinct     string // null-safe inequality
	materialized bool
	textTime     bool // timestamps bound and stored as fixed-width text
	placeholder  func(n int) string
}

var postgresDialect = dialect{
	name:         config.DriverPostgres,
	floatType:    "DOUBLE PRECISION",
	timeType:     "TIMESTAMPTZ",
	now:          "NOW()",
	distinct:     "IS DISTINCT FROM",
	materialized: true,
	placeholder:  func(n int) string { return fmt.Sprintf("$%d", n) },
}

var sqliteDialect = dialect{
	name:        config.DriverSQLite,
	floatType:   "REAL",
	timeType:    "TEXT",
	now:         "CURRENT_TIMESTAMP",
	distinct:    "IS NOT",
	textTime:    true,
	placeholder: func(int) string { return "?" },
}

// placeholders returns n placeholders starting at from, comma separated.
func (d dialect) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

// createTableSQL returns the DDL for one category table.
func createTableSQL(d dialect, spec provider.CategorySpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", spec.Table)
	b.WriteString("\tplayer_gsis_id TEXT NOT NULL,\n")
	b.WriteString("\tseason INTEGER NOT NULL,\n")
	b.WriteString("\tseason_type TEXT NOT NULL,\n")
	b.WriteString("\tweek INTEGER NOT NULL,\n")
	for _, col := range provider.IdentityColumns {
		fmt.Fprintf(&b, "\t%s TEXT,\n", col)
	}
	for _, col := range spec.StatColumns() {
		fmt.Fprintf(&b, "\t%s %s,\n", col, d.floatType)
	}
	for _, col := range provider.FantasyColumns {
		fmt.Fprintf(&b, "\t%s %s NOT NULL DEFAULT 0,\n", col, d.floatType)
	}
	for _, col := range spec.Efficiency {
		fmt.Fprintf(&b, "\t%s %s,\n", col, d.floatType)
	}
	fmt.Fprintf(&b, "\tcreated_at %s NOT NULL DEFAULT %s,\n", d.timeType, d.now)
	fmt.Fprintf(&b, "\tupdated_at %s NOT NULL DEFAULT %s,\n", d.timeType, d.now)
	fmt.Fprintf(&b, "\tCONSTRAINT %s_natural_key UNIQUE (%s)\n", spec.Table, strings.Join(provider.KeyColumns, ", "))
	b.WriteString(")")
	return b.String()
}

// upsertSQL returns the insert-or-update statement for one row of spec.
// The update only fires when at least one column differs, so re-applying an
// identical row affects zero rows and leaves updated_at alone.
func upsertSQL(d dialect, spec provider.CategorySpec) string {
	cols := spec.RecordColumns()
	data := cols[len(provider.KeyColumns):]

	sets := make([]string, 0, len(data)+1)
	diffs := make([]string, 0, len(data))
	for _, col := range data {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		diffs = append(diffs, fmt.Sprintf("%s.%s %s excluded.%s", spec.Table, col, d.distinct, col))
	}
	sets = append(sets, "updated_at = "+d.now)

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)\nON CONFLICT (%s) DO UPDATE SET\n\t%s\nWHERE %s",
		spec.Table,
		strings.Join(cols, ", "),
		d.placeholders(1, len(cols)),
		strings.Join(provider.KeyColumns, ", "),
		strings.Join(sets, ",\n\t"),
		strings.Join(diffs, "\n\tOR "),
	)
}

// upsertArgs returns the bind values for rec in RecordColumns order. Absent
// stats and empty identity strings bind as NULL.
func upsertArgs(spec provider.CategorySpec, rec provider.Record) []any {
	cols := spec.RecordColumns()
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = rec.Value(col)
	}
	return args
}

func createRunsTableSQL(d dialect) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	category TEXT NOT NULL,
	season INTEGER NOT NULL,
	status TEXT NOT NULL,
	fetched INTEGER NOT NULL DEFAULT 0,
	malformed INTEGER NOT NULL DEFAULT 0,
	filtered INTEGER NOT NULL DEFAULT 0,
	upserted INTEGER NOT NULL DEFAULT 0,
	unchanged INTEGER NOT NULL DEFAULT 0,
	failed_batch_offset INTEGER,
	error TEXT,
	started_at %s NOT NULL,
	finished_at %s NOT NULL
)`, config.IngestionRunTable, d.timeType, d.timeType)
}

// schemaStatements returns every DDL statement in dependency order.
func schemaStatements(d dialect) []string {
	var stmts []string
	for _, cat := range provider.Categories() {
		spec := cat.Spec()
		stmts = append(stmts,
			createTableSQL(d, spec),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_season_idx ON %s (season, season_type)", spec.Table, spec.Table),
		)
	}
	stmts = append(stmts,
		createRunsTableSQL(d),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_started_idx ON %s (started_at)", config.IngestionRunTable, config.IngestionRunTable),
	)
	return append(stmts, combinedViewStatements(d)...)
}

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nilInt returns nil for a nil pointer and the value otherwise.
func nilInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
