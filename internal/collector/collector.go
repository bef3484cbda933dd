// Package collector discovers candidate products from article and ranking
// sources. Every collector reports Amazon product codes with the article or
// ranking entry that mentioned them.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/observability"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

// Collector discovers products from one source.
type Collector interface {
	// Source identifies the collector.
	Source() types.SourceType

	// Collect runs one discovery pass. Per-page failures are logged and
	// skipped; an error means the whole source produced nothing.
	Collect(ctx context.Context, opts Options) (*Result, error)
}

// Options control a single collection pass.
type Options struct {
	// Force revisits URLs already in the explored set.
	Force bool
}

// Result is what one collector found.
type Result struct {
	Source types.SourceType
	Items  []types.DiscoveredItem

	// Categories is filled by ranking sources that know where an item was
	// listed.
	Categories types.CategoryInfo

	// Products holds listing details ranking sources saw next to the code.
	// Enrichment falls back to them when the product page is unavailable.
	Products map[string]parser.Product

	// Processed counts articles or ranking pages read.
	Processed int

	// Skipped counts candidates dropped because they were already explored.
	Skipped int
}

func newResult(source types.SourceType) *Result {
	return &Result{
		Source:     source,
		Categories: types.CategoryInfo{},
		Products:   map[string]parser.Product{},
	}
}

// Deps are the shared services collectors use.
type Deps struct {
	Fetcher  fetcher.Fetcher
	Throttle fetcher.Throttle
	Explored explored.Store
	Metrics  *observability.Metrics
	Logger   *slog.Logger

	// YouTube is the video search API. Nil when no API key is configured.
	YouTube VideoSearcher
}

func (d Deps) wait(ctx context.Context, delay time.Duration) error {
	if d.Throttle == nil {
		return ctx.Err()
	}
	return d.Throttle.Wait(ctx, delay)
}

// fetchGet fetches rawURL and counts the page against source.
func (d Deps) fetchGet(ctx context.Context, source types.SourceType, rawURL string, opts ...func(*types.Request)) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(req)
	}
	resp, err := fetcher.Do(ctx, d.Fetcher, req)
	d.Metrics.PageFetched(source, err)
	return resp, err
}

func waitFor(selector string) func(*types.Request) {
	return func(r *types.Request) { r.WaitSelector = selector }
}

// New builds the collector for source from configuration.
func New(source types.SourceType, cfg *config.Config, deps Deps) (Collector, error) {
	switch source {
	case types.SourceNote:
		return NewNote(cfg.Sources.Note, deps), nil
	case types.SourceYouTube:
		return NewYouTube(cfg.Sources.YouTube, deps), nil
	case types.SourceZenn:
		return NewZenn(cfg.Sources.Zenn, deps), nil
	case types.SourceHatena:
		return NewHatena(cfg.Sources.Hatena, deps), nil
	case types.SourceAmazonBestseller:
		return NewAmazonBestseller(cfg.Sources.Amazon, deps)
	case types.SourceKakaku:
		return NewKakaku(cfg.Sources.Kakaku, deps)
	case types.SourceMakuake:
		return NewMakuake(cfg.Sources.Makuake, deps), nil
	}
	return nil, fmt.Errorf("%w: %q", types.ErrUnknownSource, source)
}

// Enabled reports whether source is switched on in cfg.
func Enabled(source types.SourceType, cfg *config.Config) bool {
	sc, ok := SourceConfig(source, cfg)
	return ok && sc.Enabled
}

// SourceConfig returns the settings of source.
func SourceConfig(source types.SourceType, cfg *config.Config) (config.SourceConfig, bool) {
	switch source {
	case types.SourceNote:
		return cfg.Sources.Note, true
	case types.SourceYouTube:
		return cfg.Sources.YouTube, true
	case types.SourceZenn:
		return cfg.Sources.Zenn, true
	case types.SourceHatena:
		return cfg.Sources.Hatena, true
	case types.SourceAmazonBestseller:
		return cfg.Sources.Amazon, true
	case types.SourceKakaku:
		return cfg.Sources.Kakaku, true
	case types.SourceMakuake:
		return cfg.Sources.Makuake, true
	}
	return config.SourceConfig{}, false
}
