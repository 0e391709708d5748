// Command ingest is the firstballot NGS ingestion CLI.
//
// Usage:
//
//	fbetl-ingest run --season 2024
//	fbetl-ingest run --category passing --season 2023 --season 2024 --export csv,parquet
//	fbetl-ingest run --sqlite ./local.db --from-file ./data
//	fbetl-ingest schedule
//	fbetl-ingest refresh
//	fbetl-ingest migrate
//	fbetl-ingest clear --category rushing --season 2024 --yes
//	fbetl-ingest runs --limit 20
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

var (
	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
)

// Persistent flags.
var (
	configPath string
	sqlitePath string
	targetName string
	verbose    bool
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:           "fbetl-ingest",
		Short:         "NFL Next Gen Stats fantasy ingestion CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose || strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
				logLevel.Set(slog.LevelDebug)
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Pipeline config file (default ./pipeline.toml if present)")
	root.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "SQLite database file; overrides SQLITE_PATH")
	root.PersistentFlags().StringVar(&targetName, "target", "", "Only use the named target (primary, secondary, sqlite)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(runCmd())
	root.AddCommand(scheduleCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(clearCmd())
	root.AddCommand(runsCmd())

	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// env is what every command needs after startup.
type env struct {
	cfg  *config.Config
	pipe *config.Pipeline
}

// setup loads configuration and returns a context cancelled on SIGINT or
// SIGTERM. The returned func cancels it and removes any scratch database.
func setup() (context.Context, func(), *env, error) {
	pipe, err := config.LoadPipeline(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if pipe.Pipeline.Verbose {
		logLevel.Set(slog.LevelDebug)
	}

	// With database writes disabled, runs still need somewhere to aggregate
	// and export from.
	var scratchDir string
	if !pipe.Data.SaveToDatabase && sqlitePath == "" {
		scratchDir, err = os.MkdirTemp("", "fbetl-scratch-")
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create scratch dir: %w", err)
		}
		sqlitePath = filepath.Join(scratchDir, "scratch.db")
		logger.Info("Database writes disabled, using scratch SQLite", "path", sqlitePath)
	}
	if sqlitePath != "" {
		os.Setenv("SQLITE_PATH", sqlitePath)
	}

	cfg, err := config.Load()
	if err != nil {
		if scratchDir != "" {
			os.RemoveAll(scratchDir)
		}
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cleanup := func() {
		cancel()
		if scratchDir != "" {
			os.RemoveAll(scratchDir)
		}
	}
	return ctx, cleanup, &env{cfg: cfg, pipe: pipe}, nil
}

// targets returns the configured targets, narrowed by --target. With
// --sqlite the Postgres targets are skipped.
func (e *env) targets() ([]config.Target, error) {
	var out []config.Target
	for _, t := range e.cfg.Targets() {
		if sqlitePath != "" && t.Driver != config.DriverSQLite {
			continue
		}
		if targetName != "" && t.Label != targetName {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no database target enabled (target filter %q)", targetName)
	}
	return out, nil
}

// forEachTarget opens every target in turn and calls fn. A failing target
// does not stop the others; all errors are returned joined.
func (e *env) forEachTarget(ctx context.Context, fn func(ctx context.Context, t config.Target, st store.Store) error) error {
	targets, err := e.targets()
	if err != nil {
		return err
	}
	var errs []error
	for _, t := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		st, err := store.Open(ctx, e.cfg, t)
		if err != nil {
			logger.Error("Failed to open target", "target", t.Label, "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Info("Connected", "target", t.Label, "driver", t.Driver)
		if err := fn(ctx, t, st); err != nil {
			logger.Error("Target failed", "target", t.Label, "error", err)
			errs = append(errs, fmt.Errorf("target %s: %w", t.Label, err))
		}
		st.Close()
	}
	return errors.Join(errs...)
}
