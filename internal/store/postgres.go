package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/db"
	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// Postgres is the pgx-backed store.
type Postgres struct {
	core
	pool *db.Pool
}

// OpenPostgres connects a pool to url using the shared pool settings.
func OpenPostgres(ctx context.Context, cfg *config.Config, url string) (*Postgres, error) {
	pool, err := db.New(ctx, db.OptionsFor(cfg, url))
	if err != nil {
		return nil, err
	}
	return NewPostgres(pool), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{
		core: core{d: postgresDialect, q: pgQuerier{pool.Pool}},
		pool: pool,
	}
}

// UpsertBatch applies recs to cat's table in one transaction, sent as a
// single pgx batch. Either every row lands or none does.
func (p *Postgres) UpsertBatch(ctx context.Context, cat provider.Category, recs []provider.Record) (UpsertResult, error) {
	var res UpsertResult
	recs = dedupe(recs)
	if len(recs) == 0 {
		return res, nil
	}
	spec := cat.Spec()
	sql := upsertSQL(p.d, spec)

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range recs {
			batch.Queue(sql, upsertArgs(spec, r)...)
		}
		br := tx.SendBatch(ctx, batch)
		for range recs {
			tag, err := br.Exec()
			if err != nil {
				br.Close()
				return err
			}
			if tag.RowsAffected() > 0 {
				res.Upserted++
			} else {
				res.Unchanged++
			}
		}
		return br.Close()
	})
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert %s: %w", spec.Table, err)
	}
	return res, nil
}

// RefreshCombined recomputes the materialized combined view without blocking
// readers.
func (p *Postgres) RefreshCombined(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, refreshCombinedSQL(p.d)); err != nil {
		return fmt.Errorf("refresh %s: %w", config.CombinedView, err)
	}
	return nil
}

// Notify publishes payload on the ingestion channel.
func (p *Postgres) Notify(ctx context.Context, payload string) error {
	return p.pool.Notify(ctx, config.NotifyChannel, payload)
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.HealthCheck(ctx) }

func (p *Postgres) Close() { p.pool.Close() }

type pgQuerier struct {
	pool *pgxpool.Pool
}

func (q pgQuerier) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q pgQuerier) query(ctx context.Context, sql string, args []any, row func(scan func(dest ...any) error) error) error {
	rows, err := q.pool.Query(ctx, sql, args...)
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
