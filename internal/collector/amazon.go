package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const amazonProductBase = "https://www.amazon.co.jp/dp/"

// bestseller is one card of a bestseller page.
type bestseller struct {
	ASIN string
	Rank int
	parser.Product
}

// AmazonBestseller discovers products from Amazon.co.jp bestseller rankings
// of desk-related categories.
type AmazonBestseller struct {
	cfg    config.SourceConfig
	deps   Deps
	pages  []RankingPage
	logger *slog.Logger
}

// NewAmazonBestseller creates the bestseller collector over the embedded
// category list.
func NewAmazonBestseller(cfg config.SourceConfig, deps Deps) (*AmazonBestseller, error) {
	pages, err := loadRankingPages()
	if err != nil {
		return nil, err
	}
	return &AmazonBestseller{
		cfg:    cfg,
		deps:   deps,
		pages:  pages.Amazon,
		logger: deps.Logger.With("component", "collector", "source", string(types.SourceAmazonBestseller)),
	}, nil
}

func (a *AmazonBestseller) Source() types.SourceType { return types.SourceAmazonBestseller }

func (a *AmazonBestseller) Collect(ctx context.Context, _ Options) (*Result, error) {
	res := newResult(types.SourceAmazonBestseller)
	acc := newAccumulator(types.SourceAmazonBestseller, aggregate.Max)

	for i, p := range a.pages {
		if ctx.Err() != nil {
			break
		}
		products, err := a.readPage(ctx, p)
		if err != nil {
			a.logger.Warn("bestseller page failed", "category", p.Name, "error", err)
		} else {
			res.Processed++
			a.logger.Debug("bestseller page", "category", p.Name, "products", len(products))
			for _, b := range products {
				acc.add(b.ASIN, amazonProductBase+b.ASIN,
					fmt.Sprintf("Amazon %s ベストセラー #%d", p.Name, b.Rank),
					float64(b.ReviewCount))
				// a product ranked in several categories keeps the last one
				res.Categories[b.ASIN] = p.CategoryOf()
				if _, ok := res.Products[b.ASIN]; !ok {
					res.Products[b.ASIN] = b.Product
				}
			}
		}
		if i < len(a.pages)-1 {
			if err := a.deps.wait(ctx, a.cfg.Delay); err != nil {
				break
			}
		}
	}

	res.Items = acc.items()
	a.deps.Metrics.Discovered(types.SourceAmazonBestseller, len(res.Items))
	a.logger.Info("bestsellers collected", "items", len(res.Items), "pages", res.Processed)
	return res, nil
}

func (a *AmazonBestseller) readPage(ctx context.Context, p RankingPage) ([]bestseller, error) {
	resp, err := a.deps.fetchGet(ctx, types.SourceAmazonBestseller, p.URL, waitFor("[data-asin]"))
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return parseBestsellers(doc, a.cfg.MaxResults), nil
}

// parseBestsellers reads up to limit product cards in page order.
func parseBestsellers(doc *goquery.Document, limit int) []bestseller {
	var out []bestseller
	seen := make(map[string]struct{})

	doc.Find(`[data-asin], .zg-grid-general-faceout, .p13n-sc-uncoverable-faceout`).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		asin := strings.TrimSpace(card.AttrOr("data-asin", ""))
		if asin == "" {
			asin = parser.ASINFromURL(card.Find(`a[href*="/dp/"]`).First().AttrOr("href", ""))
		}
		if !parser.IsASIN(asin) {
			return true
		}
		if _, dup := seen[asin]; dup {
			return true
		}

		title := parser.FirstText(card, ".p13n-sc-truncate", "._cDEzb_p13n-sc-css-line-clamp-1_1Fn1y", ".a-link-normal span")
		if title == "" {
			title = card.Find("a[title]").First().AttrOr("title", "")
		}
		if title == "" {
			title = card.Find("img[alt]").First().AttrOr("alt", "")
		}
		if title == "" {
			return true
		}
		seen[asin] = struct{}{}

		out = append(out, bestseller{
			ASIN: asin,
			Rank: len(out) + 1,
			Product: parser.Product{
				Name:        parser.CleanText(title),
				Image:       card.Find("img").First().AttrOr("src", ""),
				Price:       parser.Count(parser.FirstText(card, ".p13n-sc-price", "._cDEzb_p13n-sc-price_3mJ9Z", ".a-price-whole")),
				Rating:      parser.Rating(parser.FirstText(card, ".a-icon-alt")),
				ReviewCount: parser.Count(parser.FirstText(card, ".a-size-small:last-of-type", `[class*="review"]`)),
			},
		})
		return limit <= 0 || len(out) < limit
	})
	return out
}
