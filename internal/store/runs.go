package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// RunStatus is the outcome of one scope run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped" // source unavailable, nothing written
)

// Run is one (target, category, season) entry in the ingestion ledger.
type Run struct {
	ID                string            `json:"id"`
	Target            string            `json:"target"`
	Category          provider.Category `json:"category"`
	Season            int               `json:"season"`
	Status            RunStatus         `json:"status"`
	Fetched           int               `json:"fetched"`
	Malformed         int               `json:"malformed"`
	Filtered          int               `json:"filtered"`
	Upserted          int               `json:"upserted"`
	Unchanged         int               `json:"unchanged"`
	FailedBatchOffset *int              `json:"failed_batch_offset,omitempty"`
	Error             string            `json:"error,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
}

const runColumns = "id, target, category, season, status, fetched, malformed, filtered, upserted, unchanged, failed_batch_offset, error, started_at, finished_at"

// SaveRun writes run to the ledger, replacing an entry with the same id.
func (c core) SaveRun(ctx context.Context, run Run) error {
	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			fetched = excluded.fetched,
			malformed = excluded.malformed,
			filtered = excluded.filtered,
			upserted = excluded.upserted,
			unchanged = excluded.unchanged,
			failed_batch_offset = excluded.failed_batch_offset,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		config.IngestionRunTable, runColumns, c.d.placeholders(1, 14))

	_, err := c.q.exec(ctx, sql,
		run.ID, run.Target, string(run.Category), run.Season, string(run.Status),
		run.Fetched, run.Malformed, run.Filtered, run.Upserted, run.Unchanged,
		nilInt(run.FailedBatchOffset), nilEmpty(run.Error),
		c.d.timeArg(run.StartedAt), c.d.timeArg(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (c core) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY started_at DESC, id LIMIT %s",
		runColumns, config.IngestionRunTable, c.d.placeholder(1))

	out := []Run{}
	err := c.q.query(ctx, sql, []any{limit}, func(scan func(dest ...any) error) error {
		var run Run
		var category, status string
		var errText *string
		var started, finished scanTime
		if err := scan(&run.ID, &run.Target, &category, &run.Season, &status,
			&run.Fetched, &run.Malformed, &run.Filtered, &run.Upserted, &run.Unchanged,
			&run.FailedBatchOffset, &errText, &started, &finished); err != nil {
			return fmt.Errorf("scan run: %w", err)
		}
		run.Category = provider.Category(category)
		run.Status = RunStatus(status)
		run.Error = deref(errText)
		run.StartedAt, run.FinishedAt = started.t, finished.t
		out = append(out, run)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// PruneRuns deletes ledger entries that started before the cutoff.
func (c core) PruneRuns(ctx context.Context, before time.Time) (int64, error) {
	n, err := c.q.exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE started_at < %s", config.IngestionRunTable, c.d.placeholder(1)),
		c.d.timeArg(before))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return n, nil
}

// sqliteTimeLayout is fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// timeArg converts t to the bind value the dialect stores.
func (d dialect) timeArg(t time.Time) any {
	if !d.textTime {
		return t
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// scanTime accepts a native timestamp (pgx) or the SQLite text encoding.
type scanTime struct{ t time.Time }

func (s *scanTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		s.t = time.Time{}
	case time.Time:
		s.t = x
	case string:
		return s.parse(x)
	case []byte:
		return s.parse(string(x))
	default:
		return fmt.Errorf("unsupported time value %T", v)
	}
	return nil
}

func (s *scanTime) parse(v string) error {
	t, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return fmt.Errorf("parse time %q: %w", v, err)
		}
	}
	s.t = t
	return nil
}
