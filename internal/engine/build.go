package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/IshaanNene/deskrank/internal/collector"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/observability"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/product"
	"github.com/IshaanNene/deskrank/internal/storage"
	"github.com/IshaanNene/deskrank/internal/types"
)

// newBrowser launches the headless browser. Replaced in tests.
var newBrowser = func(cfg *config.Config, logger *slog.Logger) (fetcher.Fetcher, error) {
	return fetcher.New("browser", cfg, logger)
}

// Build creates an Engine wired to the real fetchers, APIs and storage
// backends named in cfg. Close releases them.
//
// API clients, product pages and image checks always use the HTTP fetcher:
// they need status codes, headers and raw bodies. Sources whose pages are
// configured for the browser get a browser that is launched on first use.
func Build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Engine, error) {
	e := New(cfg, logger)
	e.SetMetrics(metrics)

	f, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	e.SetFetcher(f)
	e.onClose(f.Close)

	browser := fetcher.NewLazy("browser", func() (fetcher.Fetcher, error) {
		logger.Info("launching browser for rendered sources")
		return newBrowser(cfg, logger)
	})
	e.onClose(browser.Close)
	for _, source := range types.AllSources {
		sc, _ := collector.SourceConfig(source, cfg)
		if cfg.PageFetcher(sc) == "browser" {
			e.SetSourceFetcher(source, browser)
		}
	}

	store, err := explored.Open(ctx, cfg, logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.SetExplored(store)
	if c, ok := store.(io.Closer); ok {
		e.onClose(c.Close)
	}

	if kw, err := parser.NewKeywordExtractor(); err != nil {
		logger.Warn("keyword extractor unavailable, matching on whole words", "error", err)
	} else {
		e.SetKeywords(kw)
	}

	if yt := collector.NewYouTubeAPI(f, cfg.Credentials.YouTubeAPIKey); yt != nil {
		e.SetYouTube(yt)
	} else {
		logger.Warn("YOUTUBE_API_KEY not set, youtube lookups disabled")
	}
	if cfg.Sources.Twitter.Enabled {
		if tw := collector.NewTwitterAPI(f, cfg.Credentials.TwitterBearerToken, cfg.Sources.Twitter.MaxResults); tw != nil {
			e.SetTwitter(tw)
		} else {
			logger.Warn("TWITTER_BEARER_TOKEN not set, twitter lookups disabled")
		}
	}
	if cfg.Sources.Products.Enabled {
		e.SetLookup(product.NewLookup(f, logger))
	}
	e.SetImageChecker(product.NewImageValidator(f))

	discovered := storage.Sink(storage.NewFileSink(cfg.Paths.DiscoveredDir, logger))
	collected := storage.Sink(storage.NewFileSink(cfg.Paths.CollectedDir, logger))
	if cfg.Mongo.URI != "" {
		mongo, err := storage.NewMongoSink(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.onClose(mongo.Close)
		discovered = storage.NewMultiSink([]storage.Sink{discovered, mongo}, logger)
		collected = storage.NewMultiSink([]storage.Sink{collected, mongo}, logger)
	}
	e.SetSinks(discovered, collected)

	if cfg.History.Enabled {
		h, err := storage.OpenHistory(ctx, cfg.History.DSN, logger)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.onClose(h.Close)
		e.SetHistory(h)
	}

	return e, nil
}
