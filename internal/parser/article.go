package parser

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Article is the part of an article page scanned for product codes.
type Article struct {
	Title string
	Links []string
	Text  string
}

// ReadArticle extracts the title, links and text of the article body found
// by the first matching selector. When none match, readability picks the
// main text and links are taken from the whole page.
func ReadArticle(doc *goquery.Document, raw []byte, pageURL string, bodySelectors ...string) Article {
	a := Article{
		Title: FirstText(doc.Selection, "h1.entry-title", "article h1", "h1"),
	}
	if a.Title == "" {
		a.Title = CleanText(doc.Find("title").First().Text())
	}

	if body := FirstMatch(doc, bodySelectors...); body != nil {
		a.Links = Links(body)
		a.Text = body.Text()
		return a
	}

	a.Links = Links(doc.Selection)
	u, err := url.Parse(pageURL)
	if err != nil {
		a.Text = doc.Text()
		return a
	}
	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err != nil {
		a.Text = doc.Text()
		return a
	}
	if a.Title == "" {
		a.Title = article.Title
	}
	a.Text = article.TextContent
	return a
}

// ASINs scans the article's links and text for product codes.
func (a Article) ASINs() []string {
	return ExtractASINs(JoinText(a.Links, a.Text))
}
