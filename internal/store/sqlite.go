package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// SQLite is the file-backed store for local runs and tests. The combined view
// is a plain view, so it is always current and RefreshCombined is a no-op.
type SQLite struct {
	core
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn := path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; also keeps :memory: databases on a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLite{
		core: core{d: sqliteDialect, q: sqlQuerier{conn}},
		db:   conn,
	}, nil
}

// UpsertBatch applies recs to cat's table in one transaction.
func (s *SQLite) UpsertBatch(ctx context.Context, cat provider.Category, recs []provider.Record) (UpsertResult, error) {
	var res UpsertResult
	recs = dedupe(recs)
	if len(recs) == 0 {
		return res, nil
	}
	spec := cat.Spec()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin %s batch: %w", spec.Table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertSQL(s.d, spec))
	if err != nil {
		return res, fmt.Errorf("prepare %s upsert: %w", spec.Table, err)
	}
	defer stmt.Close()

	for _, r := range recs {
		result, err := stmt.ExecContext(ctx, upsertArgs(spec, r)...)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("upsert %s: %w", spec.Table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return UpsertResult{}, fmt.Errorf("upsert %s: %w", spec.Table, err)
		}
		if n > 0 {
			res.Upserted++
		} else {
			res.Unchanged++
		}
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit %s batch: %w", spec.Table, err)
	}
	return res, nil
}

func (s *SQLite) RefreshCombined(context.Context) error { return nil }

// Notify is a no-op: SQLite has no LISTEN/NOTIFY.
func (s *SQLite) Notify(context.Context, string) error { return nil }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() { s.db.Close() }

type sqlQuerier struct {
	db *sql.DB
}

func (q sqlQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q sqlQuerier) query(ctx context.Context, query string, args []any, row func(scan func(dest ...any) error) error) error {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := row(rows.Scan); err != nil {
			return err
		}
	}
	return rows.Err()
}
