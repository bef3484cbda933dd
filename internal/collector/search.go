package collector

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/types"
)

// candidate is one article or video found on a search page.
type candidate struct {
	URL   string `json:"url"`
	Title string `json:"title"`

	// Engagement is the likes, bookmarks or views shown on the listing.
	Engagement float64 `json:"engagement"`

	// Text is the body when the listing already carries it, as the video
	// API does.
	Text string `json:"-"`
}

// page is what an article fetch yields.
type page struct {
	Title      string
	ASINs      []string
	Engagement float64
}

// searcher is the source-specific half of a search-based collector.
type searcher interface {
	// ready fails when the source cannot run, e.g. a missing API key.
	ready() error
	// search lists candidates for one query.
	search(ctx context.Context, query string) ([]candidate, error)
	// inspect reads one candidate and returns the codes it mentions.
	inspect(ctx context.Context, c candidate) (page, error)
}

// extraLister is implemented by searchers with listings beyond the query
// results, such as trending pages.
type extraLister interface {
	extra(ctx context.Context) []candidate
}

// searchCollector runs the shared flow of the article sources: search every
// query, drop explored URLs, read each article and count the codes it links.
type searchCollector struct {
	source types.SourceType
	cfg    config.SourceConfig
	deps   Deps
	impl   searcher
	logger *slog.Logger

	// markFailed adds articles that failed to load to the explored set.
	markFailed bool
}

func newSearchCollector(source types.SourceType, cfg config.SourceConfig, deps Deps, impl searcher) *searchCollector {
	return &searchCollector{
		source: source,
		cfg:    cfg,
		deps:   deps,
		impl:   impl,
		logger: deps.Logger.With("component", "collector", "source", string(source)),
	}
}

func (s *searchCollector) Source() types.SourceType { return s.source }

func (s *searchCollector) Collect(ctx context.Context, opts Options) (*Result, error) {
	if err := s.impl.ready(); err != nil {
		return nil, err
	}

	res := newResult(s.source)
	candidates := s.gather(ctx)
	s.logger.Info("candidates listed", "count", len(candidates))

	if !opts.Force {
		var err error
		candidates, res.Skipped, err = explored.FilterUnexplored(ctx, s.deps.Explored, s.source, candidates,
			func(c candidate) string { return c.URL })
		if err != nil {
			return nil, err
		}
		if res.Skipped > 0 {
			s.logger.Info("skipping explored articles", "skipped", res.Skipped)
		}
		s.deps.Metrics.Skipped(s.source, res.Skipped)
	}

	acc := newAccumulator(s.source, aggregate.Sum)
	var visited []string

	for i, c := range candidates {
		if ctx.Err() != nil {
			s.logger.Warn("collection interrupted", "remaining", len(candidates)-i)
			break
		}
		s.logger.Debug("reading article", "n", i+1, "of", len(candidates), "title", c.Title)

		p, err := s.impl.inspect(ctx, c)
		if err != nil {
			s.logger.Warn("article failed", "url", c.URL, "error", err)
			if s.markFailed && ctx.Err() == nil {
				visited = append(visited, c.URL)
			}
		} else {
			visited = append(visited, c.URL)
			res.Processed++
			title := p.Title
			if title == "" {
				title = c.Title
			}
			engagement := c.Engagement
			if engagement == 0 {
				engagement = p.Engagement
			}
			for _, asin := range p.ASINs {
				acc.add(asin, c.URL, title, engagement)
			}
			if len(p.ASINs) > 0 {
				s.logger.Debug("codes found", "url", c.URL, "count", len(p.ASINs))
			}
		}

		if i < len(candidates)-1 {
			if err := s.deps.wait(ctx, s.cfg.Delay); err != nil {
				break
			}
		}
	}

	if len(visited) > 0 {
		// Record progress even when the run was cancelled.
		if err := s.deps.Explored.AddExploredURLs(context.WithoutCancel(ctx), s.source, visited); err != nil {
			s.logger.Error("failed to save explored urls", "error", err)
		} else {
			s.logger.Info("explored urls saved", "count", len(visited))
		}
	}

	res.Items = acc.items()
	s.deps.Metrics.Discovered(s.source, len(res.Items))
	return res, nil
}

// gather runs every query and the extra listings, deduplicating by URL.
func (s *searchCollector) gather(ctx context.Context) []candidate {
	seen := make(map[string]struct{})
	var out []candidate
	keep := func(cs []candidate) {
		for _, c := range cs {
			if c.URL == "" {
				continue
			}
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			out = append(out, c)
		}
	}

	for i, q := range s.cfg.Queries {
		if ctx.Err() != nil {
			return out
		}
		found, err := s.impl.search(ctx, q)
		if err != nil {
			s.logger.Warn("search failed", "query", q, "error", err)
		} else {
			if s.cfg.MaxResults > 0 && len(found) > s.cfg.MaxResults {
				found = found[:s.cfg.MaxResults]
			}
			s.logger.Debug("search results", "query", q, "count", len(found))
			keep(found)
		}
		if i < len(s.cfg.Queries)-1 {
			if err := s.deps.wait(ctx, s.cfg.Delay); err != nil {
				return out
			}
		}
	}

	if x, ok := s.impl.(extraLister); ok {
		keep(x.extra(ctx))
	}
	return out
}
