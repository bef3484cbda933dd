package collector

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/aggregate"
	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/explored"
	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeFetcher serves canned pages by exact URL. Unknown URLs answer 404.
type fakeFetcher struct {
	mu        sync.Mutex
	pages     map[string]string
	redirects map[string]string
	requested []string
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, redirects: map[string]string{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u := req.URLString()
	f.mu.Lock()
	f.requested = append(f.requested, u)
	f.mu.Unlock()

	body, ok := f.pages[u]
	if !ok {
		return types.NewBrowserResponse(req, 404, nil, u, 0), nil
	}
	final := u
	if r, ok := f.redirects[u]; ok {
		final = r
	}
	return types.NewBrowserResponse(req, 200, []byte(body), final, 0), nil
}

func (f *fakeFetcher) Close() error { return nil }
func (f *fakeFetcher) Type() string { return "fake" }

func (f *fakeFetcher) didRequest(u string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requested {
		if r == u {
			return true
		}
	}
	return false
}

func testDeps(f fetcher.Fetcher) Deps {
	return Deps{
		Fetcher:  f,
		Throttle: fetcher.NoDelay{},
		Explored: explored.NewMemoryStore(),
		Logger:   testLogger,
	}
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestAccumulatorSum(t *testing.T) {
	acc := newAccumulator(types.SourceZenn, aggregate.Sum)
	acc.add("B0AAAAAAA1", "u1", "t1", 3)
	acc.add("B0AAAAAAA2", "u1", "t1", 3)
	acc.add("B0AAAAAAA1", "u2", "t2", 5)

	items := acc.items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	first := items[0]
	if first.ASIN != "B0AAAAAAA1" || first.MentionCount != 2 || first.TotalEngagement != 8 {
		t.Errorf("first = %+v", first)
	}
	if first.SourceURL != "u1" || first.SourceTitle != "t1" {
		t.Errorf("first mention should fix identity, got %+v", first)
	}
}

func TestAccumulatorMax(t *testing.T) {
	acc := newAccumulator(types.SourceAmazonBestseller, aggregate.Max)
	acc.add("B0AAAAAAA1", "u", "t", 100)
	acc.add("B0AAAAAAA1", "u", "t", 300)
	acc.add("B0AAAAAAA1", "u", "t", 200)

	it := acc.items()[0]
	if it.MentionCount != 3 || it.TotalEngagement != 300 {
		t.Errorf("got %+v, want mentions 3 engagement 300", it)
	}
}

const (
	noteArticleA = "https://note.com/alice/n/n0000000000a"
	noteArticleB = "https://note.com/bob/n/n0000000000b"
)

func noteInterestURL() string {
	return "https://note.com/interests/" + url.PathEscape("デスクツアー")
}

func noteCard(href, title, likes string) string {
	return `<div><div><div><a href="` + href + `"><h3>` + title + `</h3></a>` +
		`<button class="o-noteLike suki-button">` + likes + `</button></div></div></div>`
}

func noteFixture() *fakeFetcher {
	listing := "<html><body>" +
		noteCard("/alice/n/n0000000000a", "私のデスクツアー2025", "4") +
		noteCard("/bob/n/n0000000000b?from=interest", "在宅ワークのデスク環境", "7") +
		"</body></html>"
	article := `<html><body><h1>在宅ワークのデスク環境</h1>
		<div class="note-common-styles__textnote-body">
		<p>キーボードはこれ <a href="https://www.amazon.co.jp/dp/B0TESTAAA1?tag=x">HHKB</a></p>
		</div></body></html>`
	return newFakeFetcher(map[string]string{
		noteInterestURL(): listing,
		noteArticleB:      article,
	})
}

func noteConfig() config.SourceConfig {
	return config.SourceConfig{Enabled: true, Queries: []string{"デスクツアー"}, MaxResults: 30}
}

func TestNoteSkipsExploredArticles(t *testing.T) {
	ctx := context.Background()
	f := noteFixture()
	deps := testDeps(f)
	if err := deps.Explored.AddExploredURLs(ctx, types.SourceNote, []string{noteArticleA}); err != nil {
		t.Fatal(err)
	}

	res, err := NewNote(noteConfig(), deps).Collect(ctx, Options{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if res.Skipped != 1 || res.Processed != 1 {
		t.Errorf("skipped=%d processed=%d, want 1 and 1", res.Skipped, res.Processed)
	}
	if f.didRequest(noteArticleA) {
		t.Error("explored article was fetched")
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %+v", res.Items)
	}
	it := res.Items[0]
	if it.ASIN != "B0TESTAAA1" || it.SourceType != types.SourceNote || it.TotalEngagement != 7 {
		t.Errorf("item = %+v", it)
	}
	if it.SourceURL != noteArticleB || it.SourceTitle != "在宅ワークのデスク環境" {
		t.Errorf("item source = %q %q", it.SourceURL, it.SourceTitle)
	}

	set, err := deps.Explored.ExploredSet(ctx, types.SourceNote)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []string{noteArticleA, noteArticleB} {
		if _, ok := set[u]; !ok {
			t.Errorf("explored set missing %s", u)
		}
	}
}

func TestNoteSecondRunFindsNothingNew(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(noteFixture())
	c := NewNote(noteConfig(), deps)

	if _, err := c.Collect(ctx, Options{}); err != nil {
		t.Fatal(err)
	}
	res, err := c.Collect(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// article A fails (404) but is still marked explored on the first run
	if res.Skipped != 2 || res.Processed != 0 || len(res.Items) != 0 {
		t.Errorf("second run: skipped=%d processed=%d items=%d", res.Skipped, res.Processed, len(res.Items))
	}
}

func TestNoteForceRevisits(t *testing.T) {
	ctx := context.Background()
	f := noteFixture()
	deps := testDeps(f)
	_ = deps.Explored.AddExploredURLs(ctx, types.SourceNote, []string{noteArticleA, noteArticleB})

	res, err := NewNote(noteConfig(), deps).Collect(ctx, Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 0 || len(res.Items) != 1 {
		t.Errorf("force run: skipped=%d items=%d", res.Skipped, len(res.Items))
	}
	if !f.didRequest(noteArticleA) {
		t.Error("force run did not revisit explored article")
	}
}

func TestNoteCancelledRunKeepsProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deps := testDeps(noteFixture())

	res, err := NewNote(noteConfig(), deps).Collect(ctx, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 0 {
		t.Errorf("cancelled run found %d items", len(res.Items))
	}
}

func TestParseNoteInterest(t *testing.T) {
	doc := mustDoc(t, "<html><body>"+
		noteCard("/a/n/n1", "短い", "1")+
		noteCard("/a/n/n2", "十分に長いタイトル", "1,234")+
		noteCard("/a/n/n2", "十分に長いタイトル", "1,234")+
		"</body></html>")

	got := parseNoteInterest(doc)
	if len(got) != 1 {
		t.Fatalf("articles = %+v", got)
	}
	if got[0].URL != "https://note.com/a/n/n2" || got[0].Likes != 1234 {
		t.Errorf("article = %+v", got[0])
	}
}

func zennFixture() *fakeFetcher {
	search := `<html><body>
		<article><a href="/alice/articles/desk-one"><h2>エンジニアのデスク環境</h2></a><span class="like-count">3</span></article>
		<article><a href="/bob/articles/desk-two"><h2>デスクセットアップ紹介</h2></a><span class="like-count">5</span></article>
		</body></html>`
	body := func(asin string) string {
		return `<html><body><h1>title</h1><div class="znc"><a href="https://amzn.example/x">x</a> 型番 ` + asin + ` とか</div></body></html>`
	}
	return newFakeFetcher(map[string]string{
		"https://zenn.dev/search?q=" + url.QueryEscape("デスク環境") + "&source=articles": search,
		"https://zenn.dev/alice/articles/desk-one": body("B0SHARED01"),
		"https://zenn.dev/bob/articles/desk-two":   body("B0SHARED01 B0SOLO0001"),
	})
}

func TestZennSumsEngagementAcrossArticles(t *testing.T) {
	cfg := config.SourceConfig{Enabled: true, Queries: []string{"デスク環境"}, MaxResults: 15}
	res, err := NewZenn(cfg, testDeps(zennFixture())).Collect(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 {
		t.Errorf("processed = %d", res.Processed)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %+v", res.Items)
	}
	shared := res.Items[0]
	if shared.ASIN != "B0SHARED01" || shared.MentionCount != 2 || shared.TotalEngagement != 8 {
		t.Errorf("shared = %+v", shared)
	}
	if shared.SourceURL != "https://zenn.dev/alice/articles/desk-one" {
		t.Errorf("shared source = %s", shared.SourceURL)
	}
}

func TestSearchDedupesAcrossQueries(t *testing.T) {
	f := zennFixture()
	search := f.pages["https://zenn.dev/search?q="+url.QueryEscape("デスク環境")+"&source=articles"]
	f.pages["https://zenn.dev/search?q="+url.QueryEscape("デスクツアー")+"&source=articles"] = search

	cfg := config.SourceConfig{Enabled: true, Queries: []string{"デスク環境", "デスクツアー"}, MaxResults: 15}
	res, err := NewZenn(cfg, testDeps(f)).Collect(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 2 || res.Items[0].MentionCount != 2 {
		t.Errorf("processed=%d mentions=%d", res.Processed, res.Items[0].MentionCount)
	}
}

func TestSearchFailureIsNotFatal(t *testing.T) {
	cfg := config.SourceConfig{Enabled: true, Queries: []string{"該当なし"}, MaxResults: 15}
	res, err := NewZenn(cfg, testDeps(newFakeFetcher(nil))).Collect(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(res.Items) != 0 || res.Processed != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestParseHatenaSearch(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="search-result"><h3><a href="https://foo.hatenablog.com/entry/2025/01/01/desk?utm=x">デスク紹介</a></h3><span class="users">42 users</span></div>
		<div class="search-result"><h3><a href="https://example.com/about">関係ない</a></h3></div>
		</body></html>`)

	got := parseHatenaSearch(doc)
	if len(got) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got[0].URL != "https://foo.hatenablog.com/entry/2025/01/01/desk" || got[0].Engagement != 42 || got[0].Title != "デスク紹介" {
		t.Errorf("candidate = %+v", got[0])
	}
}

func TestParseHatenaHotFiltersByKeyword(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="entrylist-contents"><h3><a class="entry-link" href="https://a.hateblo.jp/entry/1" title="最強のデスク環境を作った">x</a></h3><span class="entry-users-count">120</span></div>
		<div class="entrylist-contents"><h3><a class="entry-link" href="https://b.hateblo.jp/entry/2" title="今日の晩ご飯">x</a></h3><span class="entry-users-count">300</span></div>
		</body></html>`)

	got := parseHatenaHot(doc, 20)
	if len(got) != 1 || got[0].URL != "https://a.hateblo.jp/entry/1" || got[0].Engagement != 120 {
		t.Errorf("got %+v", got)
	}
}

func TestHatenaIncludesHotEntries(t *testing.T) {
	hot := `<html><body><div class="entrylist-contents"><h3><a class="entry-link" href="https://a.hateblo.jp/entry/1" title="在宅ワークのデスク">x</a></h3><span class="entry-users-count">9</span></div></body></html>`
	f := newFakeFetcher(map[string]string{
		hatenaHotURL + "it":            hot,
		"https://a.hateblo.jp/entry/1": `<html><body><div class="entry-content"><a href="https://www.amazon.co.jp/gp/product/B0HATENA01">x</a></div></body></html>`,
	})
	cfg := config.SourceConfig{Enabled: true, Queries: nil, MaxResults: 10}

	res, err := NewHatena(cfg, testDeps(f)).Collect(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 1 || res.Items[0].ASIN != "B0HATENA01" || res.Items[0].TotalEngagement != 9 {
		t.Errorf("items = %+v", res.Items)
	}
}

func TestYouTubeWithoutKeyIsCredentialError(t *testing.T) {
	cfg := config.SourceConfig{Enabled: true, Queries: []string{"デスクツアー"}, MaxResults: 15}
	_, err := NewYouTube(cfg, testDeps(newFakeFetcher(nil))).Collect(context.Background(), Options{})

	var credErr *types.CredentialError
	if !errors.As(err, &credErr) || credErr.Env != "YOUTUBE_API_KEY" {
		t.Fatalf("err = %v, want CredentialError", err)
	}
	if !errors.Is(err, types.ErrMissingCredential) {
		t.Error("credential error should match ErrMissingCredential")
	}
}

type fakeVideos []Video

func (v fakeVideos) SearchVideos(ctx context.Context, query string, maxResults int) ([]Video, error) {
	return v, nil
}

func TestYouTubeFollowsShortLinks(t *testing.T) {
	f := newFakeFetcher(map[string]string{"https://amzn.to/3abcXYZ": "<html></html>"})
	f.redirects["https://amzn.to/3abcXYZ"] = "https://www.amazon.co.jp/dp/B0SHORT001?th=1"

	deps := testDeps(f)
	deps.YouTube = fakeVideos{{
		ID:          "vid1",
		Title:       "デスクツアー",
		Description: "キーボード B0DIRECT01\nマウス https://amzn.to/3abcXYZ",
		Views:       5000,
	}}
	cfg := config.SourceConfig{Enabled: true, Queries: []string{"デスクツアー"}, MaxResults: 15}

	res, err := NewYouTube(cfg, deps).Collect(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %+v", res.Items)
	}
	if res.Items[0].ASIN != "B0DIRECT01" || res.Items[1].ASIN != "B0SHORT001" {
		t.Errorf("asins = %s %s", res.Items[0].ASIN, res.Items[1].ASIN)
	}
	if res.Items[0].TotalEngagement != 5000 || res.Items[0].SourceURL != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("item = %+v", res.Items[0])
	}
}

func TestMatchNoteArticles(t *testing.T) {
	articles := []NoteArticle{
		{URL: "1", Title: "ハッピーハッキングキーボードを買った", Likes: 10},
		{URL: "2", Title: "hhkbのキーマップ", Likes: 5},
		{URL: "3", Title: "椅子の話", Likes: 100},
	}
	m := MatchNoteArticles(nil, "PFU HHKB Professional HYBRID Type-S", articles)
	if m.ArticleCount != 2 || m.TotalLikes != 15 {
		t.Errorf("match = %+v", m)
	}
}

func TestMatchNoteArticlesFallbackWords(t *testing.T) {
	var k *parser.KeywordExtractor
	articles := []NoteArticle{{Title: "Keychron Q1 レビュー", Likes: 3}}
	m := MatchNoteArticles(k, "Keychron Q1 Pro", articles)
	if m.ArticleCount != 1 {
		t.Errorf("match = %+v", m)
	}
}

func TestNewBuildsEverySource(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, s := range types.AllSources {
		c, err := New(s, cfg, testDeps(newFakeFetcher(nil)))
		if err != nil {
			t.Fatalf("New(%s): %v", s, err)
		}
		if c.Source() != s {
			t.Errorf("New(%s).Source() = %s", s, c.Source())
		}
	}
	if _, err := New("twitter", cfg, testDeps(nil)); !errors.Is(err, types.ErrUnknownSource) {
		t.Errorf("unknown source err = %v", err)
	}
}
