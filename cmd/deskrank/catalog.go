package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/deskrank/internal/catalog"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/storage"
	"github.com/IshaanNene/deskrank/internal/types"
)

var (
	rankCategory string
	rankLimit    int
	rankNew      bool
	rankCSV      string
	searchLimit  int
)

// rankingCmd creates the "ranking" subcommand.
func rankingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Show the catalog ranking",
		RunE:  runRanking,
	}
	cmd.Flags().StringVar(&rankCategory, "category", "", "only rank one category (device, furniture, lighting, accessory)")
	cmd.Flags().IntVarP(&rankLimit, "limit", "n", 0, "number of items (default depends on the view)")
	cmd.Flags().BoolVar(&rankNew, "new", false, "show new arrivals instead")
	cmd.Flags().StringVar(&rankCSV, "csv", "", "also export the listed items to a CSV file")
	return cmd
}

func runRanking(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := catalog.Load(cfg.Paths.Catalog)
	if err != nil {
		return err
	}

	var items []catalog.Item
	switch {
	case rankNew:
		items = f.NewArrivals(limitOr(rankLimit, catalog.DefaultNewLimit))
		fmt.Println("🆕 New arrivals")
	case rankCategory != "":
		items = f.TopByCategory(rankCategory, limitOr(rankLimit, catalog.DefaultCategoryLimit))
		fmt.Printf("🏆 Top %s\n", rankCategory)
	default:
		items = f.TopRanking(limitOr(rankLimit, catalog.DefaultTopLimit))
		fmt.Println("🏆 Ranking")
	}
	printItems(items)

	if rankCSV != "" {
		out, err := os.Create(rankCSV)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		defer out.Close()
		if err := storage.WriteCSV(out, items); err != nil {
			return err
		}
		fmt.Printf("💾 Exported %d items to %s\n", len(items), rankCSV)
	}
	return nil
}

func limitOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

func printItems(items []catalog.Item) {
	if len(items) == 0 {
		fmt.Println("   (no items)")
		return
	}
	for i, it := range items {
		rank := it.Rank
		if rank == 0 {
			rank = i + 1
		}
		fmt.Printf("  %2d. [%3d] %-40s %s/%s\n", rank, it.Score, truncate(it.Name, 40), it.Category, it.SubCategory)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// searchCmd creates the "search" subcommand.
func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			f, err := catalog.Load(cfg.Paths.Catalog)
			if err != nil {
				return err
			}

			kw, err := parser.NewKeywordExtractor()
			if err != nil {
				logger.Warn("keyword extractor unavailable, indexing whole words", "error", err)
				kw = nil
			}
			idx, err := catalog.NewIndex(f.Items, kw)
			if err != nil {
				return err
			}
			defer idx.Close()

			query := strings.Join(args, " ")
			hits, err := idx.Search(query, searchLimit)
			if err != nil {
				return err
			}
			fmt.Printf("🔍 %d results for %q\n", len(hits), query)
			printItems(hits)
			return nil
		},
	}
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum results")
	return cmd
}

// exploredCmd creates the "explored" subcommand group.
func exploredCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explored",
		Short: "Inspect or reset the explored article cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Count explored URLs per source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExplored(func(ctx context.Context, store explored.Store) error {
				counts, err := store.Summary(ctx)
				if err != nil {
					return err
				}
				fmt.Println("📚 Explored URLs:")
				total := 0
				for _, s := range explored.Sources {
					fmt.Printf("  %-8s %d\n", s, counts[s])
					total += counts[s]
				}
				fmt.Printf("  %-8s %d\n", "total", total)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [source...]",
		Short: "Forget explored URLs (all article sources when none are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sources []types.SourceType
			for _, a := range args {
				s, err := types.ParseSource(a)
				if err != nil {
					return err
				}
				sources = append(sources, s)
			}
			return withExplored(func(ctx context.Context, store explored.Store) error {
				if err := store.Clear(ctx, sources...); err != nil {
					return err
				}
				if len(sources) == 0 {
					fmt.Println("🧹 Cleared all explored URLs")
				} else {
					fmt.Printf("🧹 Cleared explored URLs for %v\n", sources)
				}
				return nil
			})
		},
	})

	return cmd
}

var historyLimit int

// historyCmd creates the "history" subcommand.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <item-id>",
		Short: "Show an item's recorded scores, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs (0 for all)")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	entries, err := loadItemHistory(cmd.Context(), cfg.History.DSN, args[0], historyLimit, logger)
	if err != nil {
		return err
	}
	fmt.Printf("📈 Score history for %s\n", args[0])
	printHistory(os.Stdout, entries)
	return nil
}

// loadItemHistory reads an item's history without creating the database
// when no collect run has recorded one yet.
func loadItemHistory(ctx context.Context, dsn, itemID string, limit int, logger *slog.Logger) ([]storage.HistoryEntry, error) {
	if dsn != ":memory:" {
		if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
	}
	h, err := storage.OpenHistory(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.ItemHistory(ctx, itemID, limit)
}

func printHistory(w io.Writer, entries []storage.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "   (no recorded runs)")
		return
	}
	for _, e := range entries {
		s := e.Social
		fmt.Fprintf(w, "  %s  [%3d]  twitter=%d youtube=%d amazon=%d note=%d  run=%s\n",
			e.RecordedAt.Local().Format("2006-01-02 15:04"), e.Score,
			s.Twitter, s.YouTube, s.Amazon, s.Note, e.RunID)
	}
}
