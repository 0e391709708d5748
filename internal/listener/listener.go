// Package listener provides a Postgres LISTEN/NOTIFY consumer that drops
// cached API responses when ingestion writes new data. It holds a dedicated
// pgx connection (not from the pool) listening on the fantasy_ingested
// channel.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cameron-eth/firstballotETL/internal/config"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// IngestEvent is the JSON payload ingestion publishes after a run that
// wrote rows.
type IngestEvent struct {
	Target   string   `json:"target"`
	Upserted int      `json:"upserted"`
	Scopes   []string `json:"scopes"`
}

// Flusher drops cached responses.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Start listens until ctx is cancelled, reconnecting with backoff on
// connection loss. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, cache Flusher, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, cache, logger)
		if ctx.Err() != nil {
			logger.Info("Ingest listener stopped (context cancelled)")
			return
		}

		logger.Error("Ingest listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session.
func listenLoop(ctx context.Context, dbURL string, cache Flusher, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+config.NotifyChannel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", config.NotifyChannel, err)
	}
	logger.Info("Ingest listener connected", "channel", config.NotifyChannel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		Handle(ctx, n.Payload, cache, logger)
	}
}

// Handle processes one notification payload. Unparseable payloads still
// flush: a notification on the channel means data changed.
func Handle(ctx context.Context, payload string, cache Flusher, logger *slog.Logger) {
	var event IngestEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("Failed to parse ingest event", "payload", payload, "error", err)
	} else {
		logger.Info("Ingest event received",
			"target", event.Target, "upserted", event.Upserted, "scopes", event.Scopes)
	}

	if err := cache.Flush(ctx); err != nil {
		logger.Warn("Cache flush failed", "error", err)
		return
	}
	logger.Info("Response cache flushed")
}
