package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/catalog"
	"github.com/IshaanNene/deskrank/internal/collector"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/product"
	"github.com/IshaanNene/deskrank/internal/storage"
	"github.com/IshaanNene/deskrank/internal/types"
)

// DiscoverOptions control a discovery run.
type DiscoverOptions struct {
	// Sources limits the run; empty means every enabled source.
	Sources []types.SourceType
	// Force revisits explored articles.
	Force bool
	// ClearCache empties the explored sets before running.
	ClearCache bool
	// Save enriches the new products and writes the discovered snapshot.
	Save bool
}

// SourceReport is the outcome of one collector.
type SourceReport struct {
	Source    types.SourceType
	Found     int
	Processed int
	Skipped   int
	Err       error
}

// DiscoverReport summarizes a discovery run.
type DiscoverReport struct {
	RunID   string
	Sources []SourceReport

	// New are the merged discoveries not yet in the catalog, most mentioned
	// first.
	New        []types.DiscoveredItem
	Categories types.CategoryInfo

	// Items are the converted catalog entries (save mode only).
	Items        []catalog.Item
	EnrichFailed int
	SnapshotPath string
}

// Discover runs the collectors one after another and merges what they
// found. A failing source is logged and counts as zero items.
func (e *Engine) Discover(ctx context.Context, opts DiscoverOptions) (*DiscoverReport, error) {
	stats, err := e.begin("discover")
	if err != nil {
		return nil, err
	}
	defer e.end(stats)

	report := &DiscoverReport{RunID: stats.RunID}

	if opts.ClearCache {
		if err := e.explored.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear explored: %w", err)
		}
		e.logger.Info("explored sets cleared")
	}

	cat, err := e.loadCatalog(true)
	if err != nil {
		return nil, err
	}
	existing := cat.ASINs()

	var (
		found    []types.DiscoveredItem
		amazon   types.CategoryInfo
		kakaku   types.CategoryInfo
		products = map[string]parser.Product{}
	)
	for _, source := range e.sources(opts.Sources) {
		if ctx.Err() != nil {
			break
		}
		res, sr := e.runSource(ctx, source, opts.Force)
		report.Sources = append(report.Sources, sr)
		stats.SourcesRun.Add(1)
		if sr.Err != nil {
			stats.SourcesFailed.Add(1)
			continue
		}

		found = append(found, res.Items...)
		switch source {
		case types.SourceAmazonBestseller:
			amazon = res.Categories
		case types.SourceKakaku:
			kakaku = res.Categories
		}
		for asin, p := range res.Products {
			if _, ok := products[asin]; !ok {
				products[asin] = p
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.New = aggregate.FilterExisting(aggregate.Merge(found), existing)
	report.Categories = aggregate.MergeCategories(amazon, kakaku)
	stats.ItemsDiscovered.Store(int64(len(report.New)))
	e.logger.Info("discovery merged",
		"found", len(found), "new", len(report.New), "per_source", aggregate.Counts(report.New))

	if !opts.Save || len(report.New) == 0 {
		return report, nil
	}

	items, failed, err := e.enrich(ctx, stats, report.New, report.Categories, products)
	report.Items, report.EnrichFailed = items, failed
	if err != nil {
		return report, err
	}
	if len(items) == 0 {
		return report, nil
	}

	sn := storage.Snapshot{Kind: storage.KindDiscovered, RunID: stats.RunID, Date: e.now(), Payload: items}
	if err := e.discoveredSink.Write(ctx, sn); err != nil {
		return report, fmt.Errorf("write discovered snapshot: %w", err)
	}
	report.SnapshotPath = storage.SnapshotPath(e.cfg.Paths.DiscoveredDir, sn.Kind, sn.Date)
	return report, nil
}

// sources resolves the requested sources in run order.
func (e *Engine) sources(requested []types.SourceType) []types.SourceType {
	want := make(map[types.SourceType]bool, len(requested))
	for _, s := range requested {
		want[s] = true
	}
	var out []types.SourceType
	for _, s := range types.AllSources {
		if len(requested) > 0 {
			if want[s] {
				out = append(out, s)
			}
		} else if collector.Enabled(s, e.cfg) {
			out = append(out, s)
		}
	}
	return out
}

func (e *Engine) runSource(ctx context.Context, source types.SourceType, force bool) (*collector.Result, SourceReport) {
	sr := SourceReport{Source: source}
	logger := e.logger.With("source", source)

	c, err := e.collector(source)
	if err != nil {
		sr.Err = err
		logger.Error("collector unavailable", "error", err)
		e.metrics.SourceFailed(source)
		return nil, sr
	}

	res, err := c.Collect(ctx, collector.Options{Force: force})
	if err != nil {
		sr.Err = err
		if errors.Is(err, types.ErrMissingCredential) {
			logger.Warn("source skipped", "reason", err)
		} else {
			logger.Error("source failed", "error", err)
			e.metrics.SourceFailed(source)
		}
		return nil, sr
	}

	sr.Found, sr.Processed, sr.Skipped = len(res.Items), res.Processed, res.Skipped
	logger.Info("source done", "found", sr.Found, "processed", sr.Processed, "skipped", sr.Skipped)
	return res, sr
}

// enrich reads product pages for up to the configured number of new items
// and converts them to catalog entries. Listing details from ranking pages
// stand in when a page cannot be read.
func (e *Engine) enrich(ctx context.Context, stats *Stats, found []types.DiscoveredItem, cats types.CategoryInfo, hints map[string]parser.Product) ([]catalog.Item, int, error) {
	limit := e.cfg.Discovery.EnrichLimit
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}

	var (
		items  []catalog.Item
		failed int
	)
	for i, d := range found {
		if i > 0 {
			if err := e.wait(ctx, e.cfg.Discovery.EnrichDelay); err != nil {
				return items, failed, err
			}
		}

		info, err := e.productInfo(ctx, d.ASIN, hints)
		if err != nil {
			if ctx.Err() != nil {
				return items, failed, ctx.Err()
			}
			failed++
			stats.EnrichFailed.Add(1)
			e.logger.Warn("product info unavailable", "asin", d.ASIN, "error", err)
			continue
		}

		var override *types.Category
		if c, ok := cats[d.ASIN]; ok {
			override = &c
		}
		item := catalog.FromDiscovered(info, d, override, e.cfg.Affiliate.AssociateTag, e.now())
		items = append(items, item)
		stats.ItemsEnriched.Add(1)
		if item.ImageURL == "" {
			e.logger.Warn("product has no image", "asin", d.ASIN, "name", item.Name)
		}
	}
	return items, failed, nil
}

func (e *Engine) productInfo(ctx context.Context, asin string, hints map[string]parser.Product) (*product.Info, error) {
	var lookupErr error
	if e.lookup != nil {
		info, err := e.lookup.Fetch(ctx, asin)
		if err == nil {
			return info, nil
		}
		lookupErr = err
	}
	if h, ok := hints[asin]; ok && h.Name != "" {
		return product.FromHint(asin, h), nil
	}
	if lookupErr == nil {
		lookupErr = fmt.Errorf("%w: %s", types.ErrNoProductInfo, asin)
	}
	return nil, lookupErr
}
