package collector

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

const noteBase = "https://note.com"

var noteBodySelectors = []string{
	".note-common-styles__textnote-body",
	`[data-name="body"]`,
	"article",
}

// NoteArticle is one entry of a note.com interest page.
type NoteArticle struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Likes int    `json:"likes"`
}

// Note discovers products linked from note.com articles. Each configured
// query names an interest page (デスクツアー by default).
type Note struct {
	*searchCollector
}

// NewNote creates the note.com collector.
func NewNote(cfg config.SourceConfig, deps Deps) *Note {
	n := &Note{}
	n.searchCollector = newSearchCollector(types.SourceNote, cfg, deps, n)
	n.markFailed = true
	return n
}

func (n *Note) ready() error { return nil }

func (n *Note) search(ctx context.Context, query string) ([]candidate, error) {
	articles, err := n.Articles(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]candidate, 0, len(articles))
	for _, a := range articles {
		out = append(out, candidate{URL: a.URL, Title: a.Title, Engagement: float64(a.Likes)})
	}
	return out, nil
}

// Articles lists the articles on the interest page for topic.
func (n *Note) Articles(ctx context.Context, topic string) ([]NoteArticle, error) {
	listURL := noteBase + "/interests/" + url.PathEscape(topic)
	resp, err := n.deps.fetchGet(ctx, types.SourceNote, listURL, waitFor("h3"))
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	return parseNoteInterest(doc), nil
}

// parseNoteInterest reads the article cards. Cards have no stable class, so
// they are found from their h3 headline outward.
func parseNoteInterest(doc *goquery.Document) []NoteArticle {
	var out []NoteArticle
	seen := make(map[string]struct{})

	doc.Find("h3").Each(func(_ int, h *goquery.Selection) {
		title := parser.CleanText(h.Text())
		if utf8.RuneCountInString(title) < 5 {
			return
		}
		card := h.Closest("div").Parent().Parent()
		href, ok := card.Find(`a[href*="/n/n"]`).First().Attr("href")
		if !ok {
			href, ok = h.Closest(`a[href*="/n/n"]`).Attr("href")
		}
		if !ok || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = noteBase + href
		}
		href = parser.StripQuery(href)
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		likes := parser.Count(parser.FirstText(card, `button[class*="suki"]`, `button[aria-label*="スキ"]`))
		out = append(out, NoteArticle{URL: href, Title: title, Likes: likes})
	})
	return out
}

func (n *Note) inspect(ctx context.Context, c candidate) (page, error) {
	resp, err := n.deps.fetchGet(ctx, types.SourceNote, c.URL)
	if err != nil {
		return page{}, err
	}
	doc, err := resp.Document()
	if err != nil {
		return page{}, err
	}
	a := parser.ReadArticle(doc, resp.Body, c.URL, noteBodySelectors...)
	return page{Title: a.Title, ASINs: a.ASINs()}, nil
}
