// Package seed runs the ingestion pipeline: fetch, validate, score,
// aggregate, and persist one (category, season) scope at a time.
package seed

import (
	"fmt"
	"time"

	"github.com/cameron-eth/firstballotETL/internal/provider"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

// ScopeResult is the outcome of one (category, season) scope on one target.
type ScopeResult struct {
	RunID             string
	Target            string
	Category          provider.Category
	Season            int
	Status            store.RunStatus
	Fetched           int
	Malformed         int
	Filtered          int
	Upserted          int
	Unchanged         int
	FailedBatchOffset *int
	Err               error
	StartedAt         time.Time
	FinishedAt        time.Time
}

// SeedResult tracks counts and errors across every scope of a run.
type SeedResult struct {
	Scopes    []ScopeResult
	Fetched   int
	Malformed int
	Filtered  int
	Upserted  int
	Unchanged int
	Succeeded int
	Failed    int
	Skipped   int
	Errors    []string
}

// Add merges a scope outcome into the totals.
func (r *SeedResult) Add(s ScopeResult) {
	r.Scopes = append(r.Scopes, s)
	r.Fetched += s.Fetched
	r.Malformed += s.Malformed
	r.Filtered += s.Filtered
	r.Upserted += s.Upserted
	r.Unchanged += s.Unchanged
	switch s.Status {
	case store.RunSucceeded:
		r.Succeeded++
	case store.RunFailed:
		r.Failed++
	case store.RunSkipped:
		r.Skipped++
	}
	if s.Err != nil {
		r.AddErrorf("%s %s %d: %v", s.Target, s.Category, s.Season, s.Err)
	}
}

// Merge folds another run's totals into this one.
func (r *SeedResult) Merge(other SeedResult) {
	r.Scopes = append(r.Scopes, other.Scopes...)
	r.Fetched += other.Fetched
	r.Malformed += other.Malformed
	r.Filtered += other.Filtered
	r.Upserted += other.Upserted
	r.Unchanged += other.Unchanged
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *SeedResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// HasFailures reports whether any scope failed outright. Skipped scopes
// (source unavailable) are not failures.
func (r *SeedResult) HasFailures() bool {
	return r.Failed > 0
}

// Summary returns a human-readable summary of the run.
func (r *SeedResult) Summary() string {
	return fmt.Sprintf(
		"scopes=%d succeeded=%d failed=%d skipped=%d fetched=%d malformed=%d filtered=%d upserted=%d unchanged=%d errors=%d",
		len(r.Scopes), r.Succeeded, r.Failed, r.Skipped,
		r.Fetched, r.Malformed, r.Filtered, r.Upserted, r.Unchanged,
		len(r.Errors),
	)
}
