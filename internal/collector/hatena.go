package collector

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const (
	hatenaSearchURL = "https://search.hatena.ne.jp/search"
	hatenaHotURL    = "https://b.hatena.ne.jp/hotentry/"

	hotCategoryDelay = time.Second
)

var (
	hatenaHotCategories = []string{"it", "life"}

	// hatenaHotKeywords select desk-related entries from the hot lists.
	hatenaHotKeywords = []string{"デスク", "ガジェット", "リモートワーク", "在宅", "キーボード", "マウス", "モニター", "環境"}
)

// Hatena discovers products from Hatena Blog search results and the
// technology and lifestyle hot entry lists.
type Hatena struct {
	*searchCollector
	hotLimit int
}

// NewHatena creates the Hatena collector.
func NewHatena(cfg config.SourceConfig, deps Deps) *Hatena {
	h := &Hatena{hotLimit: 20}
	h.searchCollector = newSearchCollector(types.SourceHatena, cfg, deps, h)
	return h
}

func (h *Hatena) ready() error { return nil }

func (h *Hatena) search(ctx context.Context, query string) ([]candidate, error) {
	searchURL := hatenaSearchURL + "?q=" + url.QueryEscape(query) + "&users=3"
	resp, err := h.deps.fetchGet(ctx, types.SourceHatena, searchURL)
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return parseHatenaSearch(doc), nil
}

func parseHatenaSearch(doc *goquery.Document) []candidate {
	var out []candidate
	seen := make(map[string]struct{})

	doc.Find(`.search-result, .searchresult-entry, [class*="result"]`).Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find(`a[href*="hatenablog"], a[href*="hateblo.jp"], a.entry-link, h3 a, .entry-title a`).First().Attr("href")
		if !ok || !isHatenaArticle(href) {
			return
		}
		href = parser.StripQuery(href)
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		title := parser.FirstText(item, "h3", ".entry-title", `[class*="title"]`)
		bookmarks := parser.Count(parser.FirstText(item, ".users", `[class*="bookmark"]`, `[class*="user"]`))
		out = append(out, candidate{URL: href, Title: title, Engagement: float64(bookmarks)})
	})
	return out
}

func isHatenaArticle(href string) bool {
	return strings.Contains(href, "hatenablog") ||
		strings.Contains(href, "hateblo.jp") ||
		strings.Contains(href, "entry")
}

// extra reads the hot entry lists and keeps desk-related entries.
func (h *Hatena) extra(ctx context.Context) []candidate {
	var out []candidate
	for i, cat := range hatenaHotCategories {
		resp, err := h.deps.fetchGet(ctx, types.SourceHatena, hatenaHotURL+cat)
		if err != nil {
			h.logger.Warn("hot entries failed", "category", cat, "error", err)
		} else if doc, err := resp.Document(); err == nil {
			found := parseHatenaHot(doc, h.hotLimit)
			h.logger.Debug("hot entries", "category", cat, "count", len(found))
			out = append(out, found...)
		}
		if i < len(hatenaHotCategories)-1 {
			if err := h.deps.wait(ctx, hotCategoryDelay); err != nil {
				break
			}
		}
	}
	return out
}

func parseHatenaHot(doc *goquery.Document, limit int) []candidate {
	var out []candidate
	seen := make(map[string]struct{})
	doc.Find(`.entrylist-contents, [class*="entry-link"]`).EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		link := entry.Find(`a.entry-link, h3 a, [class*="title"] a`).First()
		if link.Length() == 0 && goquery.NodeName(entry) == "a" {
			link = entry
		}
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return true
		}
		title := link.AttrOr("title", "")
		if title == "" {
			title = parser.CleanText(link.Text())
		}
		if !containsAny(title, hatenaHotKeywords) {
			return true
		}
		href = parser.StripQuery(href)
		if _, dup := seen[href]; dup {
			return true
		}
		seen[href] = struct{}{}
		users := parser.Count(parser.FirstText(entry, ".entry-users-count", `[class*="users"]`))
		out = append(out, candidate{URL: href, Title: title, Engagement: float64(users)})
		return limit <= 0 || len(out) < limit
	})
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func (h *Hatena) inspect(ctx context.Context, c candidate) (page, error) {
	resp, err := h.deps.fetchGet(ctx, types.SourceHatena, c.URL)
	if err != nil {
		return page{}, err
	}
	doc, err := resp.Document()
	if err != nil {
		return page{}, err
	}
	a := parser.ReadArticle(doc, resp.Body, c.URL, ".entry-content", "article", ".post-content", "main")
	return page{Title: a.Title, ASINs: a.ASINs()}, nil
}
