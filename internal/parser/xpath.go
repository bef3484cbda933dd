package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Node is a matched element reduced to what collectors read from it.
type Node struct {
	Text  string
	Attrs map[string]string
}

// Attr returns the named attribute or "".
func (n Node) Attr(name string) string { return n.Attrs[name] }

// XPath evaluates expr against an HTML body and returns every matched
// element. Text keeps the element's line breaks so callers can split
// multi-line link labels.
func XPath(body []byte, expr string) ([]Node, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		attrs := make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			attrs[a.Key] = a.Val
		}
		out = append(out, Node{
			Text:  strings.TrimSpace(htmlquery.InnerText(n)),
			Attrs: attrs,
		})
	}
	return out, nil
}
