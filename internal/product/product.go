// Package product reads Amazon.co.jp product pages to fill in catalog
// details for discovered codes, and checks catalog image URLs.
package product

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const amazonBase = "https://www.amazon.co.jp"

// Info is what a product page says about a product.
type Info struct {
	ASIN        string  `json:"asin"`
	Title       string  `json:"title"`
	Price       int     `json:"price"`
	ImageURL    string  `json:"imageUrl"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
	Brand       string  `json:"brand"`
	Description string  `json:"description"`
}

// FromHint builds Info from listing details, for when the product page
// cannot be read.
func FromHint(asin string, p parser.Product) *Info {
	return &Info{
		ASIN:        asin,
		Title:       p.Name,
		Price:       p.Price,
		ImageURL:    p.Image,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		Brand:       p.Brand,
		Description: p.Description,
	}
}

// Lookup fetches product pages.
type Lookup struct {
	fetcher fetcher.Fetcher
	baseURL string
	logger  *slog.Logger
}

// NewLookup creates a product page reader.
func NewLookup(f fetcher.Fetcher, logger *slog.Logger) *Lookup {
	return &Lookup{
		fetcher: f,
		baseURL: amazonBase,
		logger:  logger.With("component", "product_lookup"),
	}
}

// PageURL returns the product page for asin.
func (l *Lookup) PageURL(asin string) string {
	return l.baseURL + "/dp/" + asin
}

// Fetch reads the product page for asin. It returns ErrNoProductInfo when the
// page has no product title, which is what a robot check page looks like.
func (l *Lookup) Fetch(ctx context.Context, asin string) (*Info, error) {
	if !parser.IsASIN(asin) {
		return nil, fmt.Errorf("%w: %q", types.ErrNoProductInfo, asin)
	}
	req, err := types.NewRequest(l.PageURL(asin))
	if err != nil {
		return nil, err
	}
	req.WaitSelector = "#productTitle"

	resp, err := fetcher.Do(ctx, l.fetcher, req)
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}

	info := parsePage(doc)
	info.ASIN = asin
	if info.Title == "" {
		return nil, fmt.Errorf("%w: %s", types.ErrNoProductInfo, asin)
	}
	l.logger.Debug("product page read", "asin", asin, "title", info.Title, "has_image", info.ImageURL != "")
	return info, nil
}

var brandLabel = regexp.MustCompile(`^(?:ブランド[:：]\s*|Brand:\s*|Visit the\s+)|(?:のストアを表示|\s+Store)$`)

// parsePage reads the product page layout and falls back to structured data
// for whatever it misses.
func parsePage(doc *goquery.Document) *Info {
	info := &Info{
		Title:       parser.FirstText(doc.Selection, "#productTitle", "#title"),
		Price:       parser.Count(parser.FirstText(doc.Selection, ".a-price .a-offscreen", "#priceblock_ourprice", "#priceblock_dealprice", ".a-price-whole")),
		ImageURL:    mainImage(doc),
		Rating:      parser.Rating(parser.FirstText(doc.Selection, "#acrPopover .a-icon-alt", "span.a-icon-alt")),
		ReviewCount: parser.Count(parser.FirstText(doc.Selection, "#acrCustomerReviewText")),
		Brand:       strings.TrimSpace(brandLabel.ReplaceAllString(parser.FirstText(doc.Selection, "#bylineInfo"), "")),
		Description: bullets(doc),
	}

	sd := parser.ExtractProduct(doc)
	if info.Title == "" {
		info.Title = sd.Name
	}
	if info.Price == 0 {
		info.Price = sd.Price
	}
	if info.ImageURL == "" {
		info.ImageURL = sd.Image
	}
	if info.Rating == 0 {
		info.Rating = sd.Rating
	}
	if info.ReviewCount == 0 {
		info.ReviewCount = sd.ReviewCount
	}
	if info.Brand == "" {
		info.Brand = sd.Brand
	}
	if info.Description == "" {
		info.Description = sd.Description
	}
	return info
}

// mainImage prefers the high resolution image. data-a-dynamic-image maps
// image URLs to their sizes.
func mainImage(doc *goquery.Document) string {
	img := doc.Find("#landingImage, #imgBlkFront").First()
	if img.Length() == 0 {
		return ""
	}
	if hires := img.AttrOr("data-old-hires", ""); hires != "" {
		return hires
	}
	if dyn := img.AttrOr("data-a-dynamic-image", ""); dyn != "" {
		var sizes map[string][]int
		if err := json.Unmarshal([]byte(dyn), &sizes); err == nil {
			best, area := "", 0
			for u, wh := range sizes {
				if len(wh) == 2 && wh[0]*wh[1] > area {
					best, area = u, wh[0]*wh[1]
				}
			}
			if best != "" {
				return best
			}
		}
	}
	src := img.AttrOr("src", "")
	if strings.HasPrefix(src, "data:") {
		return ""
	}
	return src
}

func bullets(doc *goquery.Document) string {
	var lines []string
	doc.Find("#feature-bullets li").Each(func(_ int, li *goquery.Selection) {
		if t := parser.CleanText(li.Text()); t != "" && len(lines) < 5 {
			lines = append(lines, t)
		}
	})
	return strings.Join(lines, "\n")
}
