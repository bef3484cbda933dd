package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/deskrank/internal/product"
	"github.com/IshaanNene/deskrank/internal/score"
	"github.com/IshaanNene/deskrank/internal/types"
)

func item(id, asin string, s int) Item {
	it := Item{ID: id, Name: id, Category: "device", Score: s}
	if asin != "" {
		it.Amazon = &Amazon{ASIN: asin, AffiliateURL: AffiliateURL(asin, "")}
	}
	return it
}

func TestLoadSavePreservesUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.json")
	src := `{
  "version": 3,
  "items": [
    {"id": "hhkb", "name": "HHKB <Type-S> & more", "category": "device", "score": 90,
     "amazon": {"asin": "B082TSZ27D", "affiliateUrl": "x", "prime": true},
     "imageUrl": "/img/hhkb.jpg", "isNew": false, "featured": true,
     "createdAt": "2024-01-01", "tags": ["keyboard"]}
  ]
}`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Items) != 1 || f.Items[0].ASIN() != "B082TSZ27D" {
		t.Fatalf("items = %+v", f.Items)
	}
	f.Items[0].Score = 95
	if err := Save(path, f); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := os.ReadFile(path)
	out := string(data)
	for _, want := range []string{`"version": 3`, `"tags": [`, `"prime": true`, `"score": 95`, `HHKB <Type-S> & more`} {
		if !strings.Contains(out, want) {
			t.Errorf("saved catalog missing %s:\n%s", want, out)
		}
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("saved catalog is not valid JSON: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{"), 0o644)
	_, err := Load(bad)
	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "catalog" {
		t.Errorf("err = %v, want catalog StorageError", err)
	}
}

func TestMergeDiscovered(t *testing.T) {
	existing := []Item{item("a", "B000000001", 50)}
	discovered := []Item{
		item("a2", "B000000001", 10),
		item("b", "B000000002", 20),
		item("b2", "B000000002", 30),
		item("none", "", 40),
	}

	res := MergeDiscovered(existing, discovered)
	if len(res.NewItems) != 1 || res.NewItems[0].ID != "b" {
		t.Errorf("NewItems = %+v", res.NewItems)
	}
	if len(res.Duplicates) != 2 {
		t.Errorf("Duplicates = %d, want 2", len(res.Duplicates))
	}
	if len(res.MissingASIN) != 1 || res.MissingASIN[0].ID != "none" {
		t.Errorf("MissingASIN = %+v", res.MissingASIN)
	}

	f := &File{Items: existing}
	f.Apply(res)
	if len(f.Items) != 2 || f.Items[0].ID != "a" || f.Items[1].ID != "b" {
		t.Errorf("after Apply = %+v", f.Items)
	}
}

func TestTopRanking(t *testing.T) {
	f := &File{Items: []Item{
		item("low", "B000000001", 10),
		item("tie1", "B000000002", 80),
		item("top", "B000000003", 95),
		item("tie2", "B000000004", 80),
	}}

	got := f.TopRanking(3)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if strings.Join(ids, ",") != "top,tie1,tie2" {
		t.Errorf("order = %v", ids)
	}
	for i, it := range got {
		if it.Rank != i+1 {
			t.Errorf("%s rank = %d, want %d", it.ID, it.Rank, i+1)
		}
	}
	if f.Items[2].Rank != 0 {
		t.Error("TopRanking modified the catalog")
	}
}

func TestTopByCategoryAndFeatured(t *testing.T) {
	chair := item("chair", "B000000005", 70)
	chair.Category = "furniture"
	chair.Featured = true
	desk := item("desk", "B000000006", 90)
	desk.Category = "furniture"
	f := &File{Items: []Item{item("kb", "B000000001", 99), chair, desk}}

	got := f.TopByCategory("furniture", DefaultCategoryLimit)
	if len(got) != 2 || got[0].ID != "desk" || got[0].Rank != 1 || got[1].Rank != 2 {
		t.Errorf("TopByCategory = %+v", got)
	}
	if fe := f.Featured(); len(fe) != 1 || fe[0].ID != "chair" {
		t.Errorf("Featured = %+v", fe)
	}
	if _, ok := f.ByID("kb"); !ok {
		t.Error("ByID(kb) not found")
	}
	if _, ok := f.ByID("nope"); ok {
		t.Error("ByID(nope) found")
	}
	if cats := f.Categories(); strings.Join(cats, ",") != "device,furniture" {
		t.Errorf("Categories = %v", cats)
	}
}

func TestNewArrivals(t *testing.T) {
	old := item("old", "B000000001", 0)
	old.IsNew, old.CreatedAt = true, "2024-01-01"
	recent := item("recent", "B000000002", 0)
	recent.IsNew, recent.CreatedAt = true, "2024-03-01T10:00:00Z"
	stale := item("stale", "B000000003", 0)
	stale.CreatedAt = "2025-01-01"

	f := &File{Items: []Item{old, stale, recent}}
	got := f.NewArrivals(DefaultNewLimit)
	if len(got) != 2 || got[0].ID != "recent" || got[1].ID != "old" {
		t.Errorf("NewArrivals = %+v", got)
	}
}

func TestAffiliateURL(t *testing.T) {
	if got := AffiliateURL("B0TEST1234", "mytag-22"); got != "https://www.amazon.co.jp/dp/B0TEST1234?tag=mytag-22" {
		t.Errorf("got %s", got)
	}
	if got := AffiliateURL("B0TEST1234", ""); !strings.HasSuffix(got, "?tag=deskitemrank-22") {
		t.Errorf("default tag: %s", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"エルゴトロン LX デスクマウント モニターアーム", "monitor-arm"},
		{"BenQ ScreenBar Halo モニターライト", "monitor-light"},
		{"Logicool MX Master 3S マウス", "mouse"},
		{"ゲーミングマウスパッド 大型", "desk-mat"},
		{"FlexiSpot 電動式 スタンディングデスク", "desk"},
		{"エルゴヒューマン プロ オフィスチェア", "chair"},
		{"PFU HHKB Professional HYBRID", "keyboard"},
		{"謎のガジェット", "other"},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got.SubCategory != tt.want {
			t.Errorf("Classify(%q) = %+v, want %s", tt.text, got, tt.want)
		}
	}
}

func TestFromDiscovered(t *testing.T) {
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	info := &product.Info{
		ASIN:     "B0ABCDEF12",
		Title:    "Logicool MX Master 3S ワイヤレス マウス",
		Brand:    "Logicool",
		Price:    16000,
		ImageURL: "https://m.media-amazon.com/images/I/x.jpg",
		Rating:   4.5,
	}
	d := types.DiscoveredItem{
		ASIN: "B0ABCDEF12", SourceType: types.SourceNote,
		MentionCount: 3, TotalEngagement: 250,
	}

	it := FromDiscovered(info, d, nil, "tag-22", now)
	if it.ID != "logicool-mx-master-3s-b0abcdef12" {
		t.Errorf("ID = %s", it.ID)
	}
	if it.Category != "device" || it.SubCategory != "mouse" {
		t.Errorf("category = %s/%s", it.Category, it.SubCategory)
	}
	if !it.IsNew || it.Featured {
		t.Errorf("flags isNew=%v featured=%v", it.IsNew, it.Featured)
	}
	if it.CreatedAt != "2025-02-03T04:05:06Z" {
		t.Errorf("CreatedAt = %s", it.CreatedAt)
	}
	if it.Amazon.AffiliateURL != "https://www.amazon.co.jp/dp/B0ABCDEF12?tag=tag-22" || it.Amazon.Price != 16000 {
		t.Errorf("amazon = %+v", it.Amazon)
	}
	// 3/10 articles * 0.10 + 250/500 likes * 0.10 = 0.08
	if it.Score != 8 {
		t.Errorf("Score = %d, want 8", it.Score)
	}
	if it.SocialScore.Amazon != 90 {
		t.Errorf("amazon social = %d, want 90", it.SocialScore.Amazon)
	}
	// (3*10 + 250/5) / 10 = 8
	if it.SocialScore.Note != 8 {
		t.Errorf("note social = %d, want 8", it.SocialScore.Note)
	}

	override := &types.Category{Category: "furniture", SubCategory: "monitor-arm"}
	if it := FromDiscovered(info, d, override, "", now); it.Category != "furniture" || it.SubCategory != "monitor-arm" {
		t.Errorf("override ignored: %s/%s", it.Category, it.SubCategory)
	}
}

func TestFromDiscoveredRankingSource(t *testing.T) {
	info := &product.Info{ASIN: "B0ZZZZZZZZ", Title: "デスクライト"}
	d := types.DiscoveredItem{ASIN: "B0ZZZZZZZZ", SourceType: types.SourceAmazonBestseller, MentionCount: 2, TotalEngagement: 5000}

	it := FromDiscovered(info, d, nil, "", time.Now())
	if it.Score != 0 {
		t.Errorf("Score = %d, want 0", it.Score)
	}
	if want := (score.SocialScore{Amazon: 50}); *it.SocialScore != want {
		t.Errorf("SocialScore = %+v", *it.SocialScore)
	}
	if it.ID != "b0zzzzzzzz" {
		t.Errorf("ID = %s", it.ID)
	}
}

func TestSearch(t *testing.T) {
	hhkb := item("hhkb", "B000000001", 90)
	hhkb.Name, hhkb.Brand = "HHKB Professional HYBRID Type-S", "PFU"
	chair := item("chair", "B000000002", 80)
	chair.Name, chair.Brand, chair.Category = "エルゴヒューマン プロ チェア", "Ergohuman", "furniture"

	idx, err := NewIndex([]Item{hhkb, chair}, nil)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	defer idx.Close()

	got, err := idx.Search("hhkb", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "hhkb" {
		t.Errorf("Search(hhkb) = %+v", got)
	}

	got, _ = idx.Search("furniture", 5)
	if len(got) != 1 || got[0].ID != "chair" {
		t.Errorf("Search(furniture) = %+v", got)
	}

	if got, _ := idx.Search("   ", 5); got != nil {
		t.Errorf("blank query = %+v", got)
	}
}
