package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameron-eth/firstballotETL/internal/config"
	"github.com/cameron-eth/firstballotETL/internal/maintenance"
	"github.com/cameron-eth/firstballotETL/internal/provider"
	"github.com/cameron-eth/firstballotETL/internal/store"
)

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the category tables, run ledger, and combined view",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup, e, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			return e.forEachTarget(ctx, func(ctx context.Context, t config.Target, st store.Store) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}
				logger.Info("Schema ready", "target", t.Label)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// refresh command
// --------------------------------------------------------------------------

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the combined player stats view",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup, e, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			return e.forEachTarget(ctx, func(ctx context.Context, t config.Target, st store.Store) error {
				return maintenance.RefreshMaterializedViews(ctx, st, logger.With("target", t.Label))
			})
		},
	}
}

// --------------------------------------------------------------------------
// clear command
// --------------------------------------------------------------------------

func clearCmd() *cobra.Command {
	var (
		category string
		season   int
		yes      bool
	)
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every row of one category and season",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := provider.ParseCategory(category)
			if err != nil {
				return err
			}
			if season == 0 {
				return fmt.Errorf("--season is required")
			}
			if !yes {
				return fmt.Errorf("refusing to clear %s %d without --yes", cat, season)
			}

			ctx, cleanup, e, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			return e.forEachTarget(ctx, func(ctx context.Context, t config.Target, st store.Store) error {
				n, err := st.Clear(ctx, cat, season)
				if err != nil {
					return err
				}
				logger.Info("Cleared rows", "target", t.Label, "table", cat.Spec().Table, "season", season, "count", n)
				return maintenance.RefreshMaterializedViews(ctx, st, logger.With("target", t.Label))
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category to clear (passing, rushing, receiving)")
	cmd.Flags().IntVar(&season, "season", 0, "Season to clear")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the delete")
	return cmd
}

// --------------------------------------------------------------------------
// runs command
// --------------------------------------------------------------------------

func runsCmd() *cobra.Command {
	var limit int
	var pruneDays int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent ingestion runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cleanup, e, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			return e.forEachTarget(ctx, func(ctx context.Context, t config.Target, st store.Store) error {
				if pruneDays > 0 {
					n, err := st.PruneRuns(ctx, time.Now().AddDate(0, 0, -pruneDays))
					if err != nil {
						return err
					}
					logger.Info("Pruned runs", "target", t.Label, "count", n)
				}
				runs, err := st.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				printRuns(t.Label, runs)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "First delete runs older than this many days")
	return cmd
}

func printRuns(target string, runs []store.Run) {
	fmt.Printf("== %s ==\n", target)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tCATEGORY\tSEASON\tSTATUS\tFETCHED\tMALFORMED\tUPSERTED\tUNCHANGED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"), r.Category, r.Season, r.Status,
			r.Fetched, r.Malformed, r.Upserted, r.Unchanged, truncate(r.Error, 60))
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
