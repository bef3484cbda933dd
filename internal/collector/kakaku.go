package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const (
	kakakuItemBase = "https://kakaku.com/item/"

	kakakuItemLinks   = `//a[contains(@href, "/item/K")]`
	kakakuAmazonLinks = `//a[contains(@href, "amazon.co.jp") or contains(@href, "amzn")]`

	kakakuNameMax = 100
)

var (
	kakakuItemID = regexp.MustCompile(`/item/(K[0-9]+)`)
	kakakuRank   = regexp.MustCompile(`^\d+位`)
	kakakuPrice  = regexp.MustCompile(`¥([\d,]+)`)
)

// kakakuEntry is one product of a kakaku.com ranking.
type kakakuEntry struct {
	ID    string
	Name  string
	Price int
	Rank  int
}

func (e kakakuEntry) url() string { return kakakuItemBase + e.ID + "/" }

// Kakaku discovers products from kakaku.com category rankings. Kakaku lists
// its own product IDs, so the top entries are opened to find a shop link
// that carries the Amazon code.
type Kakaku struct {
	cfg    config.SourceConfig
	deps   Deps
	pages  []RankingPage
	logger *slog.Logger

	detailLimit int
	detailDelay time.Duration
}

// NewKakaku creates the kakaku.com collector over the embedded category list.
func NewKakaku(cfg config.SourceConfig, deps Deps) (*Kakaku, error) {
	pages, err := loadRankingPages()
	if err != nil {
		return nil, err
	}
	return &Kakaku{
		cfg:         cfg,
		deps:        deps,
		pages:       pages.Kakaku,
		logger:      deps.Logger.With("component", "collector", "source", string(types.SourceKakaku)),
		detailLimit: 10,
		detailDelay: 1500 * time.Millisecond,
	}, nil
}

func (k *Kakaku) Source() types.SourceType { return types.SourceKakaku }

func (k *Kakaku) Collect(ctx context.Context, _ Options) (*Result, error) {
	res := newResult(types.SourceKakaku)
	acc := newAccumulator(types.SourceKakaku, aggregate.Max)

	for i, p := range k.pages {
		if ctx.Err() != nil {
			break
		}
		entries, err := k.readRanking(ctx, p)
		if err != nil {
			k.logger.Warn("ranking page failed", "category", p.Name, "error", err)
		} else {
			res.Processed++
			k.logger.Debug("ranking page", "category", p.Name, "entries", len(entries))
			k.resolve(ctx, p, entries, acc, res)
		}
		if i < len(k.pages)-1 {
			if err := k.deps.wait(ctx, k.cfg.Delay); err != nil {
				break
			}
		}
	}

	res.Items = acc.items()
	k.deps.Metrics.Discovered(types.SourceKakaku, len(res.Items))
	k.logger.Info("rankings collected", "items", len(res.Items), "pages", res.Processed)
	return res, nil
}

// resolve opens the top entries and records the ones with an Amazon code.
func (k *Kakaku) resolve(ctx context.Context, p RankingPage, entries []kakakuEntry, acc *accumulator, res *Result) {
	for i, e := range entries {
		if i >= k.detailLimit || ctx.Err() != nil {
			return
		}
		asin, err := k.amazonCode(ctx, e)
		if err != nil {
			k.logger.Debug("detail page failed", "id", e.ID, "error", err)
		} else if asin != "" {
			acc.add(asin, e.url(), fmt.Sprintf("価格.com %s ランキング #%d", p.Name, e.Rank), 0)
			res.Categories[asin] = p.CategoryOf()
			if _, ok := res.Products[asin]; !ok {
				res.Products[asin] = parser.Product{Name: e.Name, Price: e.Price}
			}
		}
		if err := k.deps.wait(ctx, k.detailDelay); err != nil {
			return
		}
	}
}

func (k *Kakaku) readRanking(ctx context.Context, p RankingPage) ([]kakakuEntry, error) {
	resp, err := k.deps.fetchGet(ctx, types.SourceKakaku, p.URL)
	if err != nil {
		return nil, err
	}
	nodes, err := parser.XPath(resp.Body, kakakuItemLinks)
	if err != nil {
		return nil, err
	}
	return parseKakakuRanking(nodes, k.cfg.MaxResults), nil
}

// parseKakakuRanking turns ranking links into entries, one per product ID.
func parseKakakuRanking(links []parser.Node, limit int) []kakakuEntry {
	var out []kakakuEntry
	seen := make(map[string]struct{})
	for _, a := range links {
		if limit > 0 && len(out) >= limit {
			break
		}
		m := kakakuItemID.FindStringSubmatch(a.Attr("href"))
		if m == nil {
			continue
		}
		id := m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		name := kakakuName(a.Text)
		if name == "" || strings.HasPrefix(name, "¥") || utf8.RuneCountInString(name) <= 2 {
			continue
		}
		seen[id] = struct{}{}

		price := 0
		if pm := kakakuPrice.FindStringSubmatch(a.Text); pm != nil {
			price = parser.Count(pm[1])
		}
		out = append(out, kakakuEntry{ID: id, Name: name, Price: price, Rank: len(out) + 1})
	}
	return out
}

// kakakuName reads the product name from a ranking link label. Labels start
// with the rank ("1位") on its own line, followed by the name.
func kakakuName(label string) string {
	var lines []string
	for _, l := range strings.Split(label, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return ""
	}

	var name string
	if rank := kakakuRank.FindString(lines[0]); rank != "" {
		switch rest := strings.TrimSpace(strings.TrimPrefix(lines[0], rank)); {
		case rest != "":
			name = rest
		case len(lines) > 1:
			name = lines[1]
		default:
			return ""
		}
	} else {
		name = strings.Join(lines[:min(2, len(lines))], " ")
	}
	if utf8.RuneCountInString(name) > kakakuNameMax {
		name = string([]rune(name)[:kakakuNameMax])
	}
	return name
}

// amazonCode finds the Amazon code among the shop links of a detail page.
// Shop links are often redirects with the target URL escaped in the query.
func (k *Kakaku) amazonCode(ctx context.Context, e kakakuEntry) (string, error) {
	resp, err := k.deps.fetchGet(ctx, types.SourceKakaku, e.url())
	if err != nil {
		return "", err
	}
	links, err := parser.XPath(resp.Body, kakakuAmazonLinks)
	if err != nil {
		return "", err
	}
	for _, l := range links {
		href := l.Attr("href")
		if u, err := url.QueryUnescape(href); err == nil {
			href = u
		}
		if !strings.Contains(href, "/dp/") && !strings.Contains(href, "/gp/product/") {
			continue
		}
		if asin := parser.ASINFromURL(href); asin != "" {
			return asin, nil
		}
	}
	return "", nil
}
