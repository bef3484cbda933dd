package catalog

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve"

	"github.com/IshaanNene/deskrank/internal/parser"
)

// Index is an in-memory full-text index over item names, brands and
// categories.
type Index struct {
	bleve bleve.Index
	kw    *parser.KeywordExtractor
	items map[string]Item
}

type indexDoc struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	// Tokens holds the morphological split of the name so Japanese words
	// match individually.
	Tokens string `json:"tokens"`
}

// NewIndex indexes items. kw may be nil, in which case names are split on
// whitespace only.
func NewIndex(items []Item, kw *parser.KeywordExtractor) (*Index, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	idx := &Index{bleve: index, kw: kw, items: make(map[string]Item, len(items))}

	batch := index.NewBatch()
	for _, it := range items {
		idx.items[it.ID] = it
		doc := indexDoc{
			Name:        it.Name,
			Brand:       it.Brand,
			Category:    it.Category,
			SubCategory: it.SubCategory,
			Tokens:      strings.Join(kw.Tokens(it.Name), " "),
		}
		if err := batch.Index(it.ID, doc); err != nil {
			index.Close()
			return nil, fmt.Errorf("index %s: %w", it.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("index batch: %w", err)
	}
	return idx, nil
}

// Search returns up to limit items matching query, best match first.
func (idx *Index) Search(query string, limit int) ([]Item, error) {
	terms := idx.kw.Tokens(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	q := bleve.NewMatchQuery(strings.Join(terms, " "))
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := idx.bleve.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	out := make([]Item, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if it, ok := idx.items[hit.ID]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// Close releases the index.
func (idx *Index) Close() error {
	return idx.bleve.Close()
}
