package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/engine"
	"github.com/IshaanNene/deskrank/internal/types"
)

var (
	discoverSave       bool
	discoverSources    []string
	discoverAll        bool
	discoverForce      bool
	discoverClearCache bool

	mergeApply    bool
	collectUpdate bool
	imagesFix     bool
)

// discoverCmd creates the "discover" subcommand.
func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover new products from articles, videos and rankings",
		Long: `Run the collectors one after another, merge the product codes they
found and report the ones not yet in the catalog. With --save the new
products are looked up and written to today's discovered snapshot.`,
		RunE: runDiscover,
	}

	cmd.Flags().BoolVar(&discoverSave, "save", false, "enrich new products and write the discovered snapshot")
	cmd.Flags().StringSliceVarP(&discoverSources, "source", "s", nil, "sources to run (note, youtube, zenn, hatena, amazon, kakaku, makuake)")
	cmd.Flags().BoolVar(&discoverAll, "all", false, "run every source, including disabled ones")
	cmd.Flags().BoolVar(&discoverForce, "force", false, "revisit already explored articles")
	cmd.Flags().BoolVar(&discoverClearCache, "clear-cache", false, "clear explored URLs for all article sources first")

	return cmd
}

func discoverOptions() (engine.DiscoverOptions, error) {
	opts := engine.DiscoverOptions{
		Force:      discoverForce,
		ClearCache: discoverClearCache,
		Save:       discoverSave,
	}
	if discoverAll {
		opts.Sources = append(opts.Sources, types.AllSources...)
		return opts, nil
	}
	for _, name := range discoverSources {
		s, err := types.ParseSource(name)
		if err != nil {
			return opts, err
		}
		opts.Sources = append(opts.Sources, s)
	}
	return opts, nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	opts, err := discoverOptions()
	if err != nil {
		return err
	}
	return withEngine(func(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error {
		start := time.Now()
		report, err := eng.Discover(ctx, opts)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		printDiscover(report, time.Since(start))
		return nil
	})
}

func printDiscover(r *engine.DiscoverReport, elapsed time.Duration) {
	fmt.Printf("\n✅ Discovery complete in %s\n", elapsed.Round(time.Millisecond))
	for _, s := range r.Sources {
		if s.Err != nil {
			fmt.Printf("   ⚠️  %-8s failed: %v\n", s.Source, s.Err)
			continue
		}
		fmt.Printf("   %-10s found=%d processed=%d skipped=%d\n", s.Source, s.Found, s.Processed, s.Skipped)
	}
	fmt.Printf("   🆕 New products: %d\n", len(r.New))
	for i, d := range r.New {
		if i == 20 {
			fmt.Printf("      ... and %d more\n", len(r.New)-i)
			break
		}
		fmt.Printf("      %s  x%d  %s\n", d.ASIN, d.MentionCount, d.SourceTitle)
	}
	if r.SnapshotPath != "" {
		fmt.Printf("   💾 Saved %d items to %s (%d lookups failed)\n", len(r.Items), r.SnapshotPath, r.EnrichFailed)
	}
}

// mergeCmd creates the "merge" subcommand.
func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the latest discovered snapshot into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error {
				r, err := eng.Merge(ctx, mergeApply)
				if err != nil {
					return fmt.Errorf("merge: %w", err)
				}

				fmt.Printf("\n📄 Snapshot: %s (%d items)\n", r.SnapshotPath, r.Discovered)
				fmt.Printf("   🆕 New:         %d\n", len(r.Result.NewItems))
				for _, it := range r.Result.NewItems {
					fmt.Printf("      %s  %s\n", it.ID, it.Name)
				}
				fmt.Printf("   🔁 Duplicates:  %d\n", len(r.Result.Duplicates))
				fmt.Printf("   ❓ No ASIN:     %d\n", len(r.Result.MissingASIN))
				if r.Applied {
					fmt.Printf("✅ Catalog updated: %d items\n", r.CatalogSize)
				} else {
					fmt.Println("ℹ️  Dry run, pass --apply to write the catalog")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&mergeApply, "apply", false, "write the merged catalog")
	return cmd
}

// collectCmd creates the "collect" subcommand.
func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Rescore catalog items from social engagement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error {
				start := time.Now()
				r, err := eng.Collect(ctx, collectUpdate)
				if err != nil {
					return fmt.Errorf("collect: %w", err)
				}

				fmt.Printf("\n✅ Collect complete in %s\n", time.Since(start).Round(time.Millisecond))
				fmt.Printf("   Items:         %d\n", len(r.Items))
				fmt.Printf("   Scored:        %d\n", len(r.Data))
				fmt.Printf("   Failed:        %d\n", r.Failed)
				fmt.Printf("   note articles: %d\n", r.NoteArticles)
				fmt.Printf("   💾 Snapshot:   %s\n", r.SnapshotPath)
				if r.Updated {
					fmt.Println("   📝 Catalog updated")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&collectUpdate, "update", false, "write new scores to the catalog")
	return cmd
}

// imagesCmd creates the "images" subcommand.
func imagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Validate product images",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(func(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error {
				r, err := eng.CheckImages(ctx, imagesFix)
				if err != nil {
					return fmt.Errorf("check images: %w", err)
				}

				fmt.Printf("\n🖼  Checked %d images\n", len(r.Results))
				fmt.Printf("   ✅ Valid:   %d\n", r.Valid)
				fmt.Printf("   ❌ Broken:  %d\n", r.Broken)
				for _, res := range r.Results {
					if res.Check.OK() {
						continue
					}
					fmt.Printf("      %s  %s  (%s)\n", res.ItemID, res.Check.Status, res.Check.Reason)
				}
				if imagesFix {
					fmt.Printf("   🔧 Fixed:   %d\n", r.Fixed)
					for _, res := range r.StillBroken {
						fmt.Printf("      still broken: %s  %s\n", res.ItemID, res.Name)
					}
				}
				if r.Saved {
					fmt.Println("   📝 Catalog updated")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&imagesFix, "fix", false, "replace broken images from the product page")
	return cmd
}
