package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/export"
	"github.com/cameron-eth/firstballotETL/internal/provider"
	"github.com/cameron-eth/firstballotETL/internal/provider/nflverse"
	"github.com/cameron-eth/firstballotETL/internal/scheduler"
	"github.com/cameron-eth/firstballotETL/internal/seed"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

// runFlags tune one ingestion. Unset flags fall back to pipeline settings.
type runFlags struct {
	categories []string
	seasons    []int
	fromFile   string
	batchSize  int
	writeDelay time.Duration
	noRefresh  bool
	export     []string
	outputDir  string
	upload     bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "Categories to ingest (passing, rushing, receiving); default from [ngs] stat_types")
	cmd.Flags().StringVar(&f.fromFile, "from-file", "", "Read ngs_{category}.csv[.gz] from this directory instead of downloading")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Records per transaction; default from [pipeline] batch_size")
	cmd.Flags().DurationVar(&f.writeDelay, "write-delay", -1, "Pause between batches; default from [pipeline] write_delay_ms")
	cmd.Flags().BoolVar(&f.noRefresh, "no-refresh", false, "Skip the combined view refresh after writing")
	cmd.Flags().StringSliceVar(&f.export, "export", nil, "Backup formats (csv, json, parquet); default from [data] save_to_*")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Backup directory; default from [data] output_dir")
	cmd.Flags().BoolVar(&f.upload, "upload", false, "Upload backups to BACKUP_S3_BUCKET")
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var f runFlags
	var startYear, endYear int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest NGS stats for the configured categories and seasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup, e, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			seasons := f.seasons
			if len(seasons) == 0 {
				if startYear > 0 {
					e.pipe.Data.StartYear = startYear
				}
				if endYear > 0 {
					e.pipe.Data.EndYear = endYear
				}
				if err := e.pipe.Validate(); err != nil {
					return err
				}
				seasons = e.pipe.YearRange()
			}
			scopes, err := buildScopes(e.pipe, f.categories, seasons)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := ingest(ctx, e, scopes, f)
			logResult(result, time.Since(start))
			return err
		},
	}
	f.register(cmd)
	cmd.Flags().IntSliceVar(&f.seasons, "season", nil, "Seasons to ingest; default [data] start_year..end_year")
	cmd.Flags().IntVar(&startYear, "start-year", 0, "Override [data] start_year")
	cmd.Flags().IntVar(&endYear, "end-year", 0, "Override [data] end_year")
	return cmd
}

// --------------------------------------------------------------------------
// schedule command
// --------------------------------------------------------------------------

func scheduleCmd() *cobra.Command {
	var f runFlags
	var cronSpec string
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Ingest the current season on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup, e, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if cronSpec == "" {
				cronSpec = e.pipe.Schedule.Cron
			}
			scopes, err := buildScopes(e.pipe, f.categories, []int{e.pipe.Data.CurrentSeason})
			if err != nil {
				return err
			}

			job := func(ctx context.Context) {
				start := time.Now()
				result, err := ingest(ctx, e, scopes, f)
				logResult(result, time.Since(start))
				if err != nil {
					logger.Error("Scheduled ingestion failed", "error", err)
				}
			}
			s, err := scheduler.New(cronSpec, time.UTC, job, logger)
			if err != nil {
				return err
			}
			if runNow {
				job(ctx)
			}
			s.Start(ctx)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&cronSpec, "cron", "", "Cron expression (UTC); default from [schedule] cron")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")
	return cmd
}

// --------------------------------------------------------------------------
// Shared ingestion
// --------------------------------------------------------------------------

func buildScopes(pipe *config.Pipeline, names []string, seasons []int) ([]seed.Scope, error) {
	if len(names) == 0 {
		names = pipe.NGS.StatTypes
	}
	cats := make([]provider.Category, 0, len(names))
	for _, n := range names {
		cat, err := provider.ParseCategory(n)
		if err != nil {
			return nil, err
		}
		cats = append(cats, cat)
	}
	return seed.Scopes(cats, seasons), nil
}

func exportFormats(pipe *config.Pipeline, names []string) ([]export.Format, error) {
	if len(names) > 0 {
		if len(names) == 1 && names[0] == "none" {
			return nil, nil
		}
		return export.ParseFormats(names)
	}
	var formats []export.Format
	if pipe.Data.SaveToCSV {
		formats = append(formats, export.FormatCSV)
	}
	if pipe.Data.SaveToJSON {
		formats = append(formats, export.FormatJSON)
	}
	if pipe.Data.SaveToParquet {
		formats = append(formats, export.FormatParquet)
	}
	return formats, nil
}

// ingest runs scopes against every target. Each target gets a complete,
// independent run; the combined result covers all of them.
func ingest(ctx context.Context, e *env, scopes []seed.Scope, f runFlags) (seed.SeedResult, error) {
	var total seed.SeedResult

	var src seed.Source
	if f.fromFile != "" {
		src = nflverse.NewFileSource(f.fromFile)
	} else {
		src = nflverse.NewClient(e.cfg.NFLVerseBaseURL, e.cfg.UpstreamRequestsPerMinute, logger)
	}

	formats, err := exportFormats(e.pipe, f.export)
	if err != nil {
		return total, err
	}
	var uploader *export.S3Uploader
	if f.upload && len(formats) > 0 {
		if e.cfg.BackupS3Bucket == "" {
			return total, fmt.Errorf("--upload requires BACKUP_S3_BUCKET")
		}
		if uploader, err = export.NewS3Uploader(ctx, e.cfg.BackupS3Bucket); err != nil {
			return total, err
		}
	}

	opts := seed.Options{
		BatchSize:  e.pipe.Pipeline.BatchSize,
		WriteDelay: e.pipe.WriteDelay(),
		Filter:     provider.Filter{Positions: e.pipe.Filters.Positions, SeasonTypes: e.pipe.Filters.SeasonTypes},
		NoRefresh:  f.noRefresh,
	}
	if f.batchSize > 0 {
		opts.BatchSize = f.batchSize
	}
	if f.writeDelay >= 0 {
		opts.WriteDelay = f.writeDelay
	}
	outputDir := f.outputDir
	if outputDir == "" {
		outputDir = e.pipe.Data.OutputDir
	}

	logger.Info("Starting ingestion",
		"scopes", len(scopes), "batch_size", opts.BatchSize, "write_delay", opts.WriteDelay,
		"exports", formats, "source", sourceName(f))

	err = e.forEachTarget(ctx, func(ctx context.Context, t config.Target, st store.Store) error {
		if err := st.Migrate(ctx); err != nil {
			return err
		}
		o := opts
		o.Target = t.Label
		if len(formats) > 0 {
			b := export.NewBackup(outputDir, t.Label, formats, logger)
			if uploader != nil {
				b.Uploader = uploader
				b.Prefix = e.cfg.BackupS3Prefix
			}
			o.Exporter = b
		}
		res := seed.NewRunner(src, st, o, logger).Run(ctx, scopes)
		total.Merge(res)
		if res.HasFailures() {
			return fmt.Errorf("%d of %d scopes failed", res.Failed, len(res.Scopes))
		}
		return nil
	})
	return total, err
}

func sourceName(f runFlags) string {
	if f.fromFile != "" {
		return "file:" + f.fromFile
	}
	return "nflverse"
}

func logResult(result seed.SeedResult, d time.Duration) {
	logger.Info("Ingestion finished", "duration", d.Round(time.Second), "summary", result.Summary())
	for _, e := range result.Errors {
		logger.Error("ingest error", "error", e)
	}
}
