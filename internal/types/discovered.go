package types

import "fmt"

// SourceType identifies where a product was discovered.
type SourceType string

const (
	SourceNote             SourceType = "note"
	SourceYouTube          SourceType = "youtube"
	SourceZenn             SourceType = "zenn"
	SourceHatena           SourceType = "hatena"
	SourceAmazonBestseller SourceType = "amazon-bestseller"
	SourceKakaku           SourceType = "kakaku"
	SourceMakuake          SourceType = "makuake"
)

// AllSources lists every source in the order a full discovery run visits them.
var AllSources = []SourceType{
	SourceNote,
	SourceYouTube,
	SourceZenn,
	SourceHatena,
	SourceAmazonBestseller,
	SourceKakaku,
	SourceMakuake,
}

// ParseSource converts a name into a SourceType.
// "amazon" is accepted as shorthand for the bestseller source.
func ParseSource(name string) (SourceType, error) {
	if name == "amazon" {
		return SourceAmazonBestseller, nil
	}
	for _, s := range AllSources {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// Ranked reports whether the source reads ranking pages rather than searching
// articles. Ranked sources do not use the explored set.
func (s SourceType) Ranked() bool {
	switch s {
	case SourceAmazonBestseller, SourceKakaku, SourceMakuake:
		return true
	}
	return false
}

// DiscoveredItem is one candidate product found during a discovery run.
type DiscoveredItem struct {
	ASIN            string     `json:"asin"`
	SourceType      SourceType `json:"sourceType"`
	SourceURL       string     `json:"sourceUrl"`
	SourceTitle     string     `json:"sourceTitle"`
	MentionCount    int        `json:"mentionCount"`
	TotalEngagement float64    `json:"totalEngagement"`
}

// Category is a catalog category/subcategory pair.
type Category struct {
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
}

// CategoryInfo maps an ASIN to the category a ranking source listed it under.
type CategoryInfo map[string]Category
