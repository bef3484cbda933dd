package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/engine"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/observability"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deskrank",
		Short: "deskrank: desk setup product discovery and scoring",
		Long: `deskrank finds desk gear people actually use and ranks it.

Pipeline:
  • discover  mine desk tour articles, videos and sales rankings for product codes
  • merge     append reviewed discoveries to the catalog
  • collect   rescore catalog items from X, YouTube and note engagement
  • images    validate product images and repair broken ones`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(imagesCmd())
	rootCmd.AddCommand(exploredCmd())
	rootCmd.AddCommand(rankingCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch strings.ToLower(cfg.Logging.Level) {
		case "debug":
			level = slog.LevelDebug
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg != nil && cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// withEngine runs fn against a fully wired engine and releases it afterwards.
func withEngine(fn func(ctx context.Context, cfg *config.Config, eng *engine.Engine, logger *slog.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	eng, err := engine.Build(ctx, cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Warn("close engine", "error", err)
		}
	}()

	return fn(ctx, cfg, eng, logger)
}

// withExplored runs fn against the explored store alone, without the
// fetchers and APIs of the full engine.
func withExplored(fn func(ctx context.Context, store explored.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	store, err := explored.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}
	return fn(ctx, store)
}

// versionCmd prints the version.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("deskrank %s\n", config.Version)
		},
	}
}

// configCmd prints the effective configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("📁 Paths:")
			fmt.Printf("  Catalog:     %s\n", cfg.Paths.Catalog)
			fmt.Printf("  Explored:    %s\n", cfg.Paths.Explored)
			fmt.Printf("  Discovered:  %s\n", cfg.Paths.DiscoveredDir)
			fmt.Printf("  Collected:   %s\n", cfg.Paths.CollectedDir)

			fmt.Println("\n🌐 Fetcher:")
			fmt.Printf("  Default:     %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Timeout:     %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Stealth:     %v\n", cfg.Fetcher.Stealth)

			fmt.Println("\n🔎 Sources:")
			for _, s := range []struct {
				name string
				sc   config.SourceConfig
			}{
				{"note", cfg.Sources.Note},
				{"youtube", cfg.Sources.YouTube},
				{"zenn", cfg.Sources.Zenn},
				{"hatena", cfg.Sources.Hatena},
				{"amazon", cfg.Sources.Amazon},
				{"kakaku", cfg.Sources.Kakaku},
				{"makuake", cfg.Sources.Makuake},
				{"twitter", cfg.Sources.Twitter},
				{"products", cfg.Sources.Products},
			} {
				fmt.Printf("  %-9s enabled=%-5v queries=%d max=%d delay=%s fetcher=%s\n",
					s.name, s.sc.Enabled, len(s.sc.Queries), s.sc.MaxResults, s.sc.Delay, cfg.PageFetcher(s.sc))
			}

			fmt.Println("\n🔑 Credentials:")
			fmt.Printf("  YouTube:     %s\n", present(cfg.Credentials.YouTubeAPIKey))
			fmt.Printf("  Twitter:     %s\n", present(cfg.Credentials.TwitterBearerToken))
			fmt.Printf("  Tag:         %s\n", cfg.Affiliate.AssociateTag)

			fmt.Println("\n💾 Storage:")
			fmt.Printf("  Explored:    %s\n", cfg.Explored.Backend)
			fmt.Printf("  Mongo:       %s\n", present(cfg.Mongo.URI))
			fmt.Printf("  History:     %v (%s)\n", cfg.History.Enabled, cfg.History.DSN)

			fmt.Println("\n📊 Metrics:")
			fmt.Printf("  Enabled:     %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:        %d\n", cfg.Metrics.Port)
			fmt.Printf("  Path:        %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}

func present(s string) string {
	if s == "" {
		return "not set"
	}
	return "set"
}
