package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cameron-eth/firstballotETL/internal/fantasy"
	"github.com/cameron-eth/firstballotETL/internal/provider"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

// Source supplies raw upstream rows for one scope.
type Source interface {
	Fetch(ctx context.Context, cat provider.Category, season int) ([]provider.RawRecord, error)
}

// Store is the persistence the runner writes through.
type Store interface {
	UpsertBatch(ctx context.Context, cat provider.Category, recs []provider.Record) (store.UpsertResult, error)
	LoadSeasonRecords(ctx context.Context, cat provider.Category, season int, playerIDs []string) ([]provider.Record, error)
	RefreshCombined(ctx context.Context) error
	SaveRun(ctx context.Context, run store.Run) error
	Notify(ctx context.Context, payload string) error
}

// Exporter receives exactly the records a scope applied.
type Exporter interface {
	Export(ctx context.Context, cat provider.Category, season int, recs []provider.Record) error
}

// Scope is one unit of ingestion.
type Scope struct {
	Category provider.Category
	Season   int
}

func (s Scope) String() string { return fmt.Sprintf("%s/%d", s.Category, s.Season) }

// Scopes returns every (category, season) pair, categories outermost.
func Scopes(cats []provider.Category, seasons []int) []Scope {
	out := make([]Scope, 0, len(cats)*len(seasons))
	for _, cat := range cats {
		for _, season := range seasons {
			out = append(out, Scope{Category: cat, Season: season})
		}
	}
	return out
}

// Options tune one Runner.
type Options struct {
	Target     string        // ledger label for the database written to
	BatchSize  int           // records per transaction
	WriteDelay time.Duration // pause between successive batches
	Filter     provider.Filter
	Exporter   Exporter // optional
	NoRefresh  bool     // skip the combined view refresh after the run
}

// Runner executes scopes against one store.
type Runner struct {
	source  Source
	store   Store
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger

	// Categories whose season-less rows were already counted this run.
	undated map[provider.Category]bool
}

// NewRunner creates a runner writing src's rows into st.
func NewRunner(src Source, st Store, opts Options, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	limit := rate.Inf
	if opts.WriteDelay > 0 {
		limit = rate.Every(opts.WriteDelay)
	}
	return &Runner{
		source:  src,
		store:   st,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("target", opts.Target),
	}
}

// Run processes scopes in order. A failing scope never stops the others;
// only context cancellation ends the run early. When anything was written
// the combined view is refreshed and listeners are notified.
func (r *Runner) Run(ctx context.Context, scopes []Scope) SeedResult {
	var result SeedResult
	start := time.Now()
	r.undated = make(map[provider.Category]bool)

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			result.AddErrorf("run interrupted before %s: %v", scope, err)
			break
		}
		sr := r.runScope(ctx, scope)
		result.Add(sr)
		r.record(ctx, sr, &result)
	}

	if result.Upserted > 0 {
		r.afterWrite(ctx, &result)
	}

	r.logger.Info("Ingestion run complete",
		"summary", result.Summary(), "duration_ms", time.Since(start).Milliseconds())
	return result
}

// runScope fetches, validates, scores, aggregates, and persists one scope.
func (r *Runner) runScope(ctx context.Context, scope Scope) (sr ScopeResult) {
	sr = ScopeResult{
		RunID:     uuid.NewString(),
		Target:    r.opts.Target,
		Category:  scope.Category,
		Season:    scope.Season,
		Status:    store.RunSucceeded,
		StartedAt: time.Now(),
	}
	log := r.logger.With("category", scope.Category, "season", scope.Season, "run_id", sr.RunID)
	defer func() {
		sr.FinishedAt = time.Now()
		log.Info("Scope done",
			"status", sr.Status, "fetched", sr.Fetched, "malformed", sr.Malformed,
			"filtered", sr.Filtered, "upserted", sr.Upserted, "unchanged", sr.Unchanged,
			"duration_ms", sr.FinishedAt.Sub(sr.StartedAt).Milliseconds())
	}()

	// 1. Fetch
	raws, err := r.source.Fetch(ctx, scope.Category, scope.Season)
	if err != nil {
		sr.Err = err
		sr.Status = store.RunFailed
		if errors.Is(err, provider.ErrSourceUnavailable) {
			sr.Status = store.RunSkipped
			log.Warn("Source unavailable, skipping scope", "error", err)
		}
		return sr
	}
	raws = r.dropCountedUndated(scope.Category, raws)
	sr.Fetched = len(raws)

	// 2. Validate
	norm := provider.Normalize(raws, r.opts.Filter)
	sr.Malformed, sr.Filtered = norm.Malformed, norm.Filtered
	if sr.Malformed > 0 {
		log.Warn("Dropped malformed records", "count", sr.Malformed)
	}
	if len(norm.Records) == 0 {
		sr.Status = store.RunSkipped
		sr.Err = fmt.Errorf("%w: no valid records", provider.ErrSourceUnavailable)
		return sr
	}

	// 3. Score
	fantasy.ScoreAll(norm.Records)

	// 4. Aggregate over the batch plus everything already stored for the
	// affected player seasons.
	history, err := r.store.LoadSeasonRecords(ctx, scope.Category, scope.Season, playerIDs(norm.Records))
	if err != nil {
		sr.Status = store.RunFailed
		sr.Err = fmt.Errorf("load history: %w", err)
		return sr
	}
	recs := mergeHistory(history, norm.Records)
	groups := fantasy.ApplySeasonAverages(recs)
	log.Debug("Aggregated season averages",
		"records", len(recs), "history", len(history), "groups", groups)

	// 5. Persist
	applied, err := r.persist(ctx, scope.Category, recs, &sr)
	if err != nil {
		sr.Status = store.RunFailed
		sr.Err = err
		var be *BatchError
		if errors.As(err, &be) {
			offset := be.Offset
			sr.FailedBatchOffset = &offset
			log.Error("Batch rejected, halting scope",
				"offset", be.Offset, "size", be.Size, "error", be.Err)
		}
	}

	// 6. Backup exactly what was applied.
	if r.opts.Exporter != nil && len(applied) > 0 {
		if err := r.opts.Exporter.Export(ctx, scope.Category, scope.Season, applied); err != nil {
			log.Warn("Backup export failed", "error", err)
			if sr.Err == nil {
				sr.Err = fmt.Errorf("export: %w", err)
			}
		}
	}
	return sr
}

// persist writes recs in bounded batches, spaced by the write delay, and
// returns the prefix that was committed. The first rejected batch halts the
// scope.
func (r *Runner) persist(ctx context.Context, cat provider.Category, recs []provider.Record, sr *ScopeResult) ([]provider.Record, error) {
	offset := 0
	for _, batch := range Chunk(recs, r.opts.BatchSize) {
		if err := r.limiter.Wait(ctx); err != nil {
			return recs[:offset], fmt.Errorf("write delay: %w", err)
		}
		res, err := r.store.UpsertBatch(ctx, cat, batch)
		if err != nil {
			return recs[:offset], &BatchError{Table: cat.Spec().Table, Offset: offset, Size: len(batch), Err: err}
		}
		sr.Upserted += res.Upserted
		sr.Unchanged += res.Unchanged
		offset += len(batch)
	}
	return recs, nil
}

// record writes the scope to the run ledger.
func (r *Runner) record(ctx context.Context, sr ScopeResult, result *SeedResult) {
	run := store.Run{
		ID:                sr.RunID,
		Target:            sr.Target,
		Category:          sr.Category,
		Season:            sr.Season,
		Status:            sr.Status,
		Fetched:           sr.Fetched,
		Malformed:         sr.Malformed,
		Filtered:          sr.Filtered,
		Upserted:          sr.Upserted,
		Unchanged:         sr.Unchanged,
		FailedBatchOffset: sr.FailedBatchOffset,
		StartedAt:         sr.StartedAt,
		FinishedAt:        sr.FinishedAt,
	}
	if sr.Err != nil {
		run.Error = sr.Err.Error()
	}
	if err := r.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.Warn("Failed to record run", "run_id", sr.RunID, "error", err)
		result.AddErrorf("record run %s: %v", sr.RunID, err)
	}
}

// notification is the payload published after a run that wrote rows.
type notification struct {
	Target   string   `json:"target"`
	Upserted int      `json:"upserted"`
	Scopes   []string `json:"scopes"`
}

// afterWrite refreshes the combined view and notifies listeners.
func (r *Runner) afterWrite(ctx context.Context, result *SeedResult) {
	if !r.opts.NoRefresh {
		start := time.Now()
		if err := r.store.RefreshCombined(ctx); err != nil {
			r.logger.Error("Combined view refresh failed", "error", err)
			result.AddErrorf("refresh combined view: %v", err)
		} else {
			r.logger.Info("Refreshed combined view", "duration_ms", time.Since(start).Milliseconds())
		}
	}

	n := notification{Target: r.opts.Target, Upserted: result.Upserted}
	for _, s := range result.Scopes {
		if s.Upserted > 0 {
			n.Scopes = append(n.Scopes, Scope{s.Category, s.Season}.String())
		}
	}
	payload, _ := json.Marshal(n)
	if err := r.store.Notify(ctx, string(payload)); err != nil {
		r.logger.Warn("Notify failed", "error", err)
	}
}

// dropCountedUndated removes rows without a season once a scope of cat has
// already counted them. A release file hands those rows to every season, so
// they are kept only for the first scope that sees them.
func (r *Runner) dropCountedUndated(cat provider.Category, raws []provider.RawRecord) []provider.RawRecord {
	if !r.undated[cat] {
		for _, raw := range raws {
			if raw.Season == nil {
				r.undated[cat] = true
				break
			}
		}
		return raws
	}
	out := make([]provider.RawRecord, 0, len(raws))
	for _, raw := range raws {
		if raw.Season != nil {
			out = append(out, raw)
		}
	}
	return out
}

// playerIDs returns the distinct players in recs, sorted.
func playerIDs(recs []provider.Record) []string {
	seen := make(map[string]bool, len(recs))
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if !seen[r.PlayerID] {
			seen[r.PlayerID] = true
			ids = append(ids, r.PlayerID)
		}
	}
	sort.Strings(ids)
	return ids
}

// mergeHistory overlays batch onto history by natural key. Batch rows
// replace stored rows with the same key, and a later batch row replaces an
// earlier one; stored weeks absent from the batch are kept so season
// averages cover the full set.
func mergeHistory(history, batch []provider.Record) []provider.Record {
	latest := make(map[provider.Key]int, len(batch))
	for i, r := range batch {
		latest[r.Key()] = i
	}
	out := make([]provider.Record, 0, len(history)+len(batch))
	for _, h := range history {
		if _, ok := latest[h.Key()]; !ok {
			out = append(out, h)
		}
	}
	for i, r := range batch {
		if latest[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}
