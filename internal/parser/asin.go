// Package parser holds the extraction helpers shared by the collectors:
// ASIN scanning, card parsing, XPath queries, structured product data and
// article body fallback.
package parser

import (
	"regexp"
	"strings"
)

// asinPattern matches a product code after a known marketplace path marker,
// or a bare "B0" code standing on its own in text.
var asinPattern = regexp.MustCompile(`(?:/dp/|/gp/product/|/gp/aw/d/|/ASIN/|[?&]asin=)([A-Z0-9]{10})|\b(B0[A-Z0-9]{8})\b`)

// ExtractASINs returns the product codes in text, deduplicated, in the order
// they first appear.
func ExtractASINs(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range asinPattern.FindAllStringSubmatchIndex(text, -1) {
		var asin string
		switch {
		case m[2] >= 0:
			// a longer alphanumeric run after the marker is not a code
			if m[3] < len(text) && isCodeChar(text[m[3]]) {
				continue
			}
			asin = text[m[2]:m[3]]
		case m[4] >= 0:
			asin = text[m[4]:m[5]]
		default:
			continue
		}
		if _, ok := seen[asin]; ok {
			continue
		}
		seen[asin] = struct{}{}
		out = append(out, asin)
	}
	return out
}

// IsASIN reports whether s has the shape of a product code.
func IsASIN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isCodeChar(s[i]) {
			return false
		}
	}
	return true
}

// ASINFromURL returns the first code found in a product URL, or "".
func ASINFromURL(rawURL string) string {
	if codes := ExtractASINs(rawURL); len(codes) > 0 {
		return codes[0]
	}
	return ""
}

func isCodeChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// JoinText concatenates link targets and body text for ASIN scanning.
func JoinText(links []string, body string) string {
	var b strings.Builder
	for _, l := range links {
		b.WriteString(l)
		b.WriteByte(' ')
	}
	b.WriteString(body)
	return b.String()
}
