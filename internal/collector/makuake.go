package collector

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const (
	makuakeBase      = "https://www.makuake.com"
	makuakeSearchURL = makuakeBase + "/search/result/?q="
)

var makuakeProjectPath = regexp.MustCompile(`^/project/[A-Za-z0-9_-]+/?$`)

// makuakeProject is one crowdfunding project on a listing.
type makuakeProject struct {
	URL        string
	Title      string
	Supporters int
}

// Makuake discovers gadgets from crowdfunding projects that have moved on to
// retail and link their Amazon listing.
type Makuake struct {
	cfg    config.SourceConfig
	deps   Deps
	logger *slog.Logger
}

// NewMakuake creates the Makuake collector.
func NewMakuake(cfg config.SourceConfig, deps Deps) *Makuake {
	return &Makuake{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "collector", "source", string(types.SourceMakuake)),
	}
}

func (m *Makuake) Source() types.SourceType { return types.SourceMakuake }

func (m *Makuake) Collect(ctx context.Context, _ Options) (*Result, error) {
	res := newResult(types.SourceMakuake)
	acc := newAccumulator(types.SourceMakuake, aggregate.Max)

	projects := m.list(ctx)
	m.logger.Info("projects listed", "count", len(projects))

	for i, p := range projects {
		if ctx.Err() != nil {
			break
		}
		asins, supporters, err := m.readProject(ctx, p.URL)
		if err != nil {
			m.logger.Warn("project page failed", "url", p.URL, "error", err)
		} else {
			res.Processed++
			if p.Supporters > 0 {
				supporters = p.Supporters
			}
			for _, asin := range asins {
				acc.add(asin, p.URL, p.Title, float64(supporters))
			}
		}
		if i < len(projects)-1 {
			if err := m.deps.wait(ctx, m.cfg.Delay); err != nil {
				break
			}
		}
	}

	res.Items = acc.items()
	m.deps.Metrics.Discovered(types.SourceMakuake, len(res.Items))
	return res, nil
}

// list searches every query and returns distinct projects, at most
// MaxResults in total.
func (m *Makuake) list(ctx context.Context) []makuakeProject {
	var out []makuakeProject
	seen := make(map[string]struct{})

	for i, q := range m.cfg.Queries {
		if ctx.Err() != nil {
			break
		}
		resp, err := m.deps.fetchGet(ctx, types.SourceMakuake, makuakeSearchURL+url.QueryEscape(q), waitFor(`a[href*="/project/"]`))
		if err != nil {
			m.logger.Warn("project search failed", "query", q, "error", err)
		} else if doc, err := resp.Document(); err != nil {
			m.logger.Warn("project search unparseable", "query", q, "error", err)
		} else {
			for _, p := range parseMakuakeListing(doc) {
				if _, dup := seen[p.URL]; dup {
					continue
				}
				seen[p.URL] = struct{}{}
				out = append(out, p)
			}
		}
		if m.cfg.MaxResults > 0 && len(out) >= m.cfg.MaxResults {
			return out[:m.cfg.MaxResults]
		}
		if i < len(m.cfg.Queries)-1 {
			if err := m.deps.wait(ctx, m.cfg.Delay); err != nil {
				break
			}
		}
	}
	return out
}

func parseMakuakeListing(doc *goquery.Document) []makuakeProject {
	var out []makuakeProject
	doc.Find(`a[href*="/project/"]`).Each(func(_ int, a *goquery.Selection) {
		abs := parser.StripQuery(parser.Resolve(makuakeBase, a.AttrOr("href", "")))
		u, err := url.Parse(abs)
		if err != nil || !makuakeProjectPath.MatchString(u.Path) {
			return
		}
		card := a.Closest("li, article")
		if card.Length() == 0 {
			card = a.Parent()
		}
		title := parser.FirstText(card, "h3", "h2", `[class*="title"]`)
		if title == "" {
			title = parser.CleanText(a.Text())
		}
		if title == "" {
			return
		}
		out = append(out, makuakeProject{
			URL:        abs,
			Title:      title,
			Supporters: parser.Count(parser.FirstText(card, `[class*="supporter"]`)),
		})
	})
	return out
}

// readProject returns the Amazon codes linked from a project page and the
// supporter count it shows.
func (m *Makuake) readProject(ctx context.Context, projectURL string) ([]string, int, error) {
	resp, err := m.deps.fetchGet(ctx, types.SourceMakuake, projectURL)
	if err != nil {
		return nil, 0, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, 0, err
	}
	var links []string
	for _, l := range parser.Links(doc.Selection) {
		if u, err := url.QueryUnescape(l); err == nil {
			l = u
		}
		links = append(links, l)
	}
	asins := parser.ExtractASINs(parser.JoinText(links, ""))
	supporters := parser.Count(parser.FirstText(doc.Selection, `[class*="supporter"]`))
	return asins, supporters, nil
}
