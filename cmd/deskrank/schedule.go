package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/engine"
	"github.com/IshaanNene/deskrank/internal/schedule"
)

var (
	cronSpec    string
	cronNow     bool
	cronCollect bool
	cronMerge   bool
)

// scheduleCmd creates the "schedule" subcommand.
func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run discovery repeatedly on a cron schedule",
		Long: `Run "discover --save" at every activation of a cron expression until
interrupted. --merge applies the snapshot and --collect rescores the
catalog after each discovery.`,
		RunE: runSchedule,
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "0 6 * * *", "cron expression (5 fields or @daily/@hourly)")
	cmd.Flags().BoolVar(&cronNow, "now", false, "also run once immediately")
	cmd.Flags().BoolVar(&cronMerge, "merge", false, "apply the discovered snapshot after each run")
	cmd.Flags().BoolVar(&cronCollect, "collect", false, "rescore the catalog after each run")
	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	sched, err := schedule.Parse(cronSpec)
	if err != nil {
		return err
	}
	opts, err := discoverOptions()
	if err != nil {
		return err
	}
	opts.Save = true

	return withEngine(func(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error {
		job := func(ctx context.Context) error {
			report, err := eng.Discover(ctx, opts)
			if err != nil {
				return fmt.Errorf("discover: %w", err)
			}
			logger.Info("scheduled discovery done", "new", len(report.New), "snapshot", report.SnapshotPath)

			if cronMerge && report.SnapshotPath != "" {
				mr, err := eng.Merge(ctx, true)
				if err != nil {
					return fmt.Errorf("merge: %w", err)
				}
				logger.Info("scheduled merge done", "added", len(mr.Result.NewItems), "catalog", mr.CatalogSize)
			}
			if cronCollect {
				cr, err := eng.Collect(ctx, true)
				if err != nil {
					return fmt.Errorf("collect: %w", err)
				}
				logger.Info("scheduled collect done", "scored", len(cr.Data), "failed", cr.Failed)
			}
			return nil
		}

		fmt.Printf("⏰ Scheduling discovery with %q, next run at %s\n", sched, sched.Next(time.Now()).Format("2006-01-02 15:04"))
		err := schedule.NewRunner(sched, job, logger).Run(ctx, cronNow)
		if errors.Is(err, context.Canceled) {
			fmt.Println("👋 Scheduler stopped")
			return nil
		}
		return err
	})
}
