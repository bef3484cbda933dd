package collector

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/deskrank/internal/types"
)

//go:embed categories.yaml
var categoriesYAML []byte

// RankingPage is one category ranking page.
type RankingPage struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Category    string `yaml:"category"`
	SubCategory string `yaml:"subCategory"`
}

// CategoryOf returns the catalog category the page maps to.
func (p RankingPage) CategoryOf() types.Category {
	return types.Category{Category: p.Category, SubCategory: p.SubCategory}
}

type rankingPages struct {
	Amazon []RankingPage `yaml:"amazon"`
	Kakaku []RankingPage `yaml:"kakaku"`
}

// loadRankingPages decodes the embedded category tables.
func loadRankingPages() (*rankingPages, error) {
	var pages rankingPages
	if err := yaml.Unmarshal(categoriesYAML, &pages); err != nil {
		return nil, fmt.Errorf("decode ranking categories: %w", err)
	}
	for _, p := range append(pages.Amazon, pages.Kakaku...) {
		if p.URL == "" || p.Category == "" {
			return nil, fmt.Errorf("ranking category %q is incomplete", p.Name)
		}
	}
	return &pages, nil
}
