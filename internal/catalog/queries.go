package catalog

import "sort"

// Default query sizes used by the site.
const (
	DefaultTopLimit      = 10
	DefaultCategoryLimit = 3
	DefaultNewLimit      = 5
)

// TopRanking returns the highest scored items with Rank set from 1.
// Ties keep catalog order.
func (f *File) TopRanking(limit int) []Item {
	return ranked(f.Items, limit, func(Item) bool { return true })
}

// TopByCategory ranks the items of one category.
func (f *File) TopByCategory(category string, limit int) []Item {
	return ranked(f.Items, limit, func(it Item) bool { return it.Category == category })
}

// NewArrivals returns items flagged new, most recently created first.
func (f *File) NewArrivals(limit int) []Item {
	out := filter(f.Items, func(it Item) bool { return it.IsNew })
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created().After(out[j].Created())
	})
	return head(out, limit)
}

// Featured returns the featured items in catalog order.
func (f *File) Featured() []Item {
	return filter(f.Items, func(it Item) bool { return it.Featured })
}

// ByID finds an item by ID.
func (f *File) ByID(id string) (Item, bool) {
	for _, it := range f.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Categories lists the categories present, in first-seen order.
func (f *File) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range f.Items {
		if _, ok := seen[it.Category]; ok || it.Category == "" {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	return out
}

func ranked(items []Item, limit int, keep func(Item) bool) []Item {
	out := filter(items, keep)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	out = head(out, limit)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// filter copies the matching items so callers can modify the result.
func filter(items []Item, keep func(Item) bool) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func head(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
