package parser

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Product is the product data a page publishes about itself through JSON-LD
// or OpenGraph tags.
type Product struct {
	Name        string
	Brand       string
	Image       string
	Description string
	Price       int
	Rating      float64
	ReviewCount int
}

// ExtractProduct reads schema.org Product JSON-LD first and falls back to
// OpenGraph tags for the fields it lacks.
func ExtractProduct(doc *goquery.Document) Product {
	var p Product
	for _, obj := range jsonLD(doc) {
		if !isType(obj["@type"], "Product") {
			continue
		}
		p.Name = str(obj["name"])
		p.Description = str(obj["description"])
		p.Image = firstString(obj["image"])
		switch b := obj["brand"].(type) {
		case string:
			p.Brand = b
		case map[string]any:
			p.Brand = str(b["name"])
		}
		if offers, ok := firstObject(obj["offers"]); ok {
			p.Price = Count(strings.SplitN(str(offers["price"]), ".", 2)[0])
		}
		if agg, ok := obj["aggregateRating"].(map[string]any); ok {
			p.Rating, _ = Decimal(str(agg["ratingValue"]))
			p.ReviewCount = Count(str(agg["reviewCount"]))
			if p.ReviewCount == 0 {
				p.ReviewCount = Count(str(agg["ratingCount"]))
			}
		}
		break
	}

	og := openGraph(doc)
	if p.Name == "" {
		p.Name = og["title"]
	}
	if p.Image == "" {
		p.Image = og["image"]
	}
	if p.Description == "" {
		p.Description = og["description"]
	}
	return p
}

// jsonLD parses <script type="application/ld+json"> elements, flattening
// arrays and @graph containers.
func jsonLD(doc *goquery.Document) []map[string]any {
	var results []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			if graph, ok := data["@graph"].([]any); ok {
				for _, g := range graph {
					if m, ok := g.(map[string]any); ok {
						results = append(results, m)
					}
				}
				return
			}
			results = append(results, data)
			return
		}

		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			results = append(results, arr...)
		}
	})
	return results
}

// openGraph parses og: meta tags.
func openGraph(doc *goquery.Document) map[string]string {
	data := make(map[string]string)
	doc.Find(`meta[property^="og:"]`).Each(func(_ int, sel *goquery.Selection) {
		property, _ := sel.Attr("property")
		content, _ := sel.Attr("content")
		if property != "" && content != "" {
			data[strings.TrimPrefix(property, "og:")] = content
		}
	})
	return data
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, x := range t {
			if s := firstString(x); s != "" {
				return s
			}
		}
	case map[string]any:
		return str(t["url"])
	}
	return ""
}

func firstObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		for _, x := range t {
			if m, ok := x.(map[string]any); ok {
				return m, true
			}
		}
	}
	return nil, false
}
