// Package aggregate combines the per-source discovery results of a run.
package aggregate

import (
	"sort"

	"github.com/IshaanNene/deskrank/internal/types"
)

// Combine folds the engagement of a repeated mention into the running total.
type Combine func(total, next float64) float64

// Sum adds engagement up. Article sources use it: every article is a new
// audience.
func Sum(total, next float64) float64 { return total + next }

// Max keeps the highest engagement. Ranking sources use it: a product listed
// in two categories carries the same review count twice.
func Max(total, next float64) float64 { return max(total, next) }

// Merge folds items into one entry per ASIN. The first occurrence keeps its
// source, URL and title; later ones add their mentions and engagement. The
// result is ordered by mention count, highest first, ties keeping the order
// of first appearance.
func Merge(items []types.DiscoveredItem) []types.DiscoveredItem {
	return byMentions(Fold(items, Sum))
}

// MergeMax is Merge with engagement folded by Max.
func MergeMax(items []types.DiscoveredItem) []types.DiscoveredItem {
	return byMentions(Fold(items, Max))
}

// Fold merges entries with the same ASIN in order of first appearance.
// Mentions add up and engagement is folded with combine.
func Fold(items []types.DiscoveredItem, combine Combine) []types.DiscoveredItem {
	byASIN := make(map[string]int, len(items))
	out := make([]types.DiscoveredItem, 0, len(items))
	for _, it := range items {
		if i, ok := byASIN[it.ASIN]; ok {
			out[i].MentionCount += it.MentionCount
			out[i].TotalEngagement = combine(out[i].TotalEngagement, it.TotalEngagement)
			continue
		}
		byASIN[it.ASIN] = len(out)
		out = append(out, it)
	}
	return out
}

func byMentions(items []types.DiscoveredItem) []types.DiscoveredItem {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].MentionCount > items[j].MentionCount
	})
	return items
}

// FilterExisting drops items whose ASIN is already in the catalog.
func FilterExisting(items []types.DiscoveredItem, existing map[string]struct{}) []types.DiscoveredItem {
	out := make([]types.DiscoveredItem, 0, len(items))
	for _, it := range items {
		if _, ok := existing[it.ASIN]; ok {
			continue
		}
		out = append(out, it)
	}
	return out
}

// MergeCategories overlays secondary onto primary. Entries already in
// primary win.
func MergeCategories(primary, secondary types.CategoryInfo) types.CategoryInfo {
	out := make(types.CategoryInfo, len(primary)+len(secondary))
	for asin, c := range secondary {
		out[asin] = c
	}
	for asin, c := range primary {
		out[asin] = c
	}
	return out
}

// Counts tallies items per source.
func Counts(items []types.DiscoveredItem) map[types.SourceType]int {
	out := make(map[types.SourceType]int)
	for _, it := range items {
		out[it.SourceType]++
	}
	return out
}
