// Package nflverse fetches Next Gen Stats weekly files from the nflverse
// data releases.
//
// One gzipped CSV per category covers every season, so a downloaded file is
// memoized for the life of the Client and each season scope is a filter over
// it. Downloads are rate limited with a token bucket and wrapped in a circuit
// breaker so a dead upstream fails fast instead of timing out per scope.
package nflverse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// Client downloads NGS release files over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	mu   sync.Mutex
	memo map[provider.Category][]provider.RawRecord
}

// NewClient creates an nflverse client. requestsPerMinute bounds how often
// the upstream is hit across all categories.
func NewClient(baseURL string, requestsPerMinute int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	rps := float64(requestsPerMinute) / 60.0

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "nflverse",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Upstream circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    breaker,
		logger:     logger,
		memo:       make(map[provider.Category][]provider.RawRecord),
	}
}

// URL returns the release file location for cat.
func (c *Client) URL(cat provider.Category) string {
	return fmt.Sprintf("%s/nextgen_stats/ngs_%s.csv.gz", c.baseURL, cat)
}

// Fetch returns the raw rows of cat for one season. A failed download or a
// season with no rows wraps provider.ErrSourceUnavailable.
func (c *Client) Fetch(ctx context.Context, cat provider.Category, season int) ([]provider.RawRecord, error) {
	all, err := c.category(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", provider.ErrSourceUnavailable, cat, err)
	}

	rows, dated := filterSeason(all, season)
	if dated == 0 {
		return nil, fmt.Errorf("%w: no %s rows for season %d", provider.ErrSourceUnavailable, cat, season)
	}
	c.logger.Debug("Fetched NGS rows", "category", cat, "season", season, "count", len(rows))
	return rows, nil
}

// category returns the memoized file for cat, downloading it on first use.
// The lock is held across the download so concurrent callers share one
// request per category.
func (c *Client) category(ctx context.Context, cat provider.Category) ([]provider.RawRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rows, ok := c.memo[cat]; ok {
		return rows, nil
	}

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.download(ctx, cat)
	})
	if err != nil {
		return nil, err
	}
	rows := out.([]provider.RawRecord)
	c.memo[cat] = rows

	c.logger.Info("Downloaded NGS file",
		"category", cat, "rows", len(rows), "duration_ms", time.Since(start).Milliseconds())
	return rows, nil
}

func (c *Client) download(ctx context.Context, cat provider.Category) ([]provider.RawRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.URL(cat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nflverse %s returned %d: %s", u, resp.StatusCode, truncate(body, 200))
	}

	rows, err := decode(resp.Body, true, cat)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", u, err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	return rows, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
