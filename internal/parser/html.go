package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	digitsOnly   = regexp.MustCompile(`[^\d]`)
	firstDecimal = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Count parses the digits in s ("1,234 件" -> 1234). Returns 0 when there
// are none.
func Count(s string) int {
	d := digitsOnly.ReplaceAllString(s, "")
	if d == "" {
		return 0
	}
	n, err := strconv.Atoi(d)
	if err != nil {
		return 0
	}
	return n
}

// Decimal parses the first decimal number in s ("5つ星のうち4.3" -> 4.3).
func Decimal(s string) (float64, bool) {
	m := firstDecimal.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Rating reads a star rating label. Japanese labels put the score after
// "うち" ("5つ星のうち4.3").
func Rating(s string) float64 {
	if i := strings.Index(s, "うち"); i >= 0 {
		s = s[i+len("うち"):]
	}
	f, _ := Decimal(s)
	return f
}

// CleanText collapses runs of whitespace and trims.
func CleanText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// FirstText returns the cleaned text of the first non-empty match of any
// selector, tried in order.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		found := ""
		sel.Find(s).EachWithBreak(func(_ int, el *goquery.Selection) bool {
			found = CleanText(el.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// FirstMatch returns the first element matching any selector, tried in order.
func FirstMatch(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, s := range selectors {
		if m := doc.Find(s).First(); m.Length() > 0 {
			return m
		}
	}
	return nil
}

// Links returns the href of every anchor inside sel.
func Links(sel *goquery.Selection) []string {
	var links []string
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && href != "" {
			links = append(links, href)
		}
	})
	return links
}

// Resolve makes href absolute against base. Returns "" for unparseable input.
func Resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	return b.ResolveReference(h).String()
}

// StripQuery drops the query string and fragment from rawURL. Search result
// links carry tracking parameters that would defeat explored-set matching.
func StripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
