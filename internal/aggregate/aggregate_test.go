package aggregate

import (
	"testing"

	"github.com/IshaanNene/deskrank/internal/types"
)

func item(asin string, source types.SourceType, mentions int, engagement float64) types.DiscoveredItem {
	return types.DiscoveredItem{
		ASIN:            asin,
		SourceType:      source,
		SourceURL:       "https://example.com/" + string(source),
		SourceTitle:     string(source),
		MentionCount:    mentions,
		TotalEngagement: engagement,
	}
}

func TestMergeSameASINTwice(t *testing.T) {
	got := Merge([]types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceNote, 1, 10),
		item("B0AAAAAAA1", types.SourceZenn, 1, 5),
	})
	if len(got) != 1 {
		t.Fatalf("got %d items", len(got))
	}
	if got[0].MentionCount != 2 || got[0].TotalEngagement != 15 {
		t.Errorf("merged = %+v", got[0])
	}
	if got[0].SourceType != types.SourceNote {
		t.Errorf("first occurrence should keep identity, got %s", got[0].SourceType)
	}
}

func TestMergeSortsByMentionsStable(t *testing.T) {
	got := Merge([]types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceNote, 1, 0),
		item("B0AAAAAAA2", types.SourceNote, 1, 0),
		item("B0AAAAAAA3", types.SourceNote, 3, 0),
		item("B0AAAAAAA2", types.SourceYouTube, 1, 0),
	})
	want := []string{"B0AAAAAAA3", "B0AAAAAAA2", "B0AAAAAAA1"}
	for i, w := range want {
		if got[i].ASIN != w {
			t.Fatalf("order = %v, want %v", asins(got), want)
		}
	}
}

func TestMergePreservesTotals(t *testing.T) {
	in := []types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceNote, 2, 1.5),
		item("B0AAAAAAA2", types.SourceHatena, 1, 4),
		item("B0AAAAAAA1", types.SourceKakaku, 1, 0),
	}
	out := Merge(in)
	if sumMentions(in) != sumMentions(out) {
		t.Errorf("mentions %d -> %d", sumMentions(in), sumMentions(out))
	}
	seen := map[string]bool{}
	for _, it := range out {
		if seen[it.ASIN] {
			t.Errorf("duplicate %s", it.ASIN)
		}
		seen[it.ASIN] = true
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestMergeMaxKeepsHighestEngagement(t *testing.T) {
	got := MergeMax([]types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceAmazonBestseller, 1, 120),
		item("B0AAAAAAA2", types.SourceAmazonBestseller, 1, 40),
		item("B0AAAAAAA1", types.SourceAmazonBestseller, 1, 300),
		item("B0AAAAAAA1", types.SourceAmazonBestseller, 1, 80),
	})
	if len(got) != 2 {
		t.Fatalf("got %v", asins(got))
	}
	if got[0].ASIN != "B0AAAAAAA1" || got[0].MentionCount != 3 || got[0].TotalEngagement != 300 {
		t.Errorf("merged = %+v", got[0])
	}
	if got[1].TotalEngagement != 40 {
		t.Errorf("single entry changed: %+v", got[1])
	}
}

func TestFoldKeepsFirstAppearanceOrder(t *testing.T) {
	got := Fold([]types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceNote, 1, 2),
		item("B0AAAAAAA2", types.SourceNote, 1, 1),
		item("B0AAAAAAA2", types.SourceNote, 1, 1),
	}, Sum)
	if len(got) != 2 || got[0].ASIN != "B0AAAAAAA1" || got[1].MentionCount != 2 || got[1].TotalEngagement != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestFilterExisting(t *testing.T) {
	got := FilterExisting([]types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceNote, 1, 0),
		item("B0AAAAAAA2", types.SourceNote, 1, 0),
	}, map[string]struct{}{"B0AAAAAAA1": {}})
	if len(got) != 1 || got[0].ASIN != "B0AAAAAAA2" {
		t.Errorf("got %v", asins(got))
	}
}

func TestMergeCategoriesPrimaryWins(t *testing.T) {
	amazon := types.CategoryInfo{"B0AAAAAAA1": {Category: "device", SubCategory: "keyboard"}}
	kakaku := types.CategoryInfo{
		"B0AAAAAAA1": {Category: "accessory", SubCategory: "hub"},
		"B0AAAAAAA2": {Category: "device", SubCategory: "mouse"},
	}
	got := MergeCategories(amazon, kakaku)
	if got["B0AAAAAAA1"].SubCategory != "keyboard" || got["B0AAAAAAA2"].SubCategory != "mouse" {
		t.Errorf("got %+v", got)
	}
}

func TestCounts(t *testing.T) {
	got := Counts([]types.DiscoveredItem{
		item("B0AAAAAAA1", types.SourceNote, 1, 0),
		item("B0AAAAAAA2", types.SourceNote, 1, 0),
		item("B0AAAAAAA3", types.SourceKakaku, 1, 0),
	})
	if got[types.SourceNote] != 2 || got[types.SourceKakaku] != 1 {
		t.Errorf("counts = %v", got)
	}
}

func asins(items []types.DiscoveredItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ASIN
	}
	return out
}

func sumMentions(items []types.DiscoveredItem) int {
	n := 0
	for _, it := range items {
		n += it.MentionCount
	}
	return n
}
