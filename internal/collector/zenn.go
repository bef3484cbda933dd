package collector

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const zennBase = "https://zenn.dev"

// Zenn discovers products linked from zenn.dev engineering articles.
type Zenn struct {
	*searchCollector
}

// NewZenn creates the zenn.dev collector.
func NewZenn(cfg config.SourceConfig, deps Deps) *Zenn {
	z := &Zenn{}
	z.searchCollector = newSearchCollector(types.SourceZenn, cfg, deps, z)
	return z
}

func (z *Zenn) ready() error { return nil }

func (z *Zenn) search(ctx context.Context, query string) ([]candidate, error) {
	searchURL := zennBase + "/search?q=" + url.QueryEscape(query) + "&source=articles"
	resp, err := z.deps.fetchGet(ctx, types.SourceZenn, searchURL, waitFor(`a[href*="/articles/"]`))
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return parseZennSearch(doc), nil
}

func parseZennSearch(doc *goquery.Document) []candidate {
	var out []candidate
	seen := make(map[string]struct{})

	doc.Find(`article, [class*="ArticleCard"], a[href*="/articles/"]`).Each(func(_ int, card *goquery.Selection) {
		link := card.Find(`a[href*="/articles/"]`).First()
		if link.Length() == 0 && goquery.NodeName(card) == "a" {
			link = card
		}
		href, _ := link.Attr("href")
		if !strings.Contains(href, "/articles/") {
			return
		}
		title := parser.FirstText(card, "h2", "h3", `[class*="title"]`)
		if title == "" {
			return
		}
		u := parser.StripQuery(parser.Resolve(zennBase, href))
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		likes := parser.Count(parser.FirstText(card, `[class*="like"]`, `[class*="heart"]`))
		out = append(out, candidate{URL: u, Title: title, Engagement: float64(likes)})
	})
	return out
}

func (z *Zenn) inspect(ctx context.Context, c candidate) (page, error) {
	resp, err := z.deps.fetchGet(ctx, types.SourceZenn, c.URL)
	if err != nil {
		return page{}, err
	}
	doc, err := resp.Document()
	if err != nil {
		return page{}, err
	}
	a := parser.ReadArticle(doc, resp.Body, c.URL, ".znc", `[class*="ArticleBody"]`, "article")
	likes := parser.Count(parser.FirstText(doc.Selection, `[class*="like"] span`, `[class*="heart"] span`))
	return page{Title: a.Title, ASINs: a.ASINs(), Engagement: float64(likes)}, nil
}
