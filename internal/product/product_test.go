package product

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/parser"
	"github.com/IshaanNene/deskrank/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const productPage = `<html><head><title>Amazon.co.jp</title></head><body>
<span id="productTitle">  Anker PowerExpand 8-in-1 USB-C PD メディア ハブ  </span>
<a id="bylineInfo" href="/stores/Anker">ブランド: Anker</a>
<div id="acrPopover"><span class="a-icon-alt">5つ星のうち4.4</span></div>
<span id="acrCustomerReviewText">3,210個の評価</span>
<span class="a-price"><span class="a-offscreen">￥7,990</span></span>
<img id="landingImage" src="data:image/gif;base64,R0lGOD"
  data-a-dynamic-image='{"https://m.media-amazon.com/images/I/small.jpg":[300,300],"https://m.media-amazon.com/images/I/large.jpg":[1500,1500]}'>
<div id="feature-bullets"><ul><li> 8ポートを1台に </li><li>4K HDMI出力</li></ul></div>
</body></html>`

func newHTTPFetcher(t *testing.T) *fetcher.HTTPFetcher {
	t.Helper()
	f, err := fetcher.NewHTTPFetcher(config.DefaultConfig(), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestLookupFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dp/B0ANKERHUB":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(productPage))
		case "/dp/B0CAPTCHA1":
			w.Write([]byte(`<html><body><form action="/errors/validateCaptcha"></form></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLookup(newHTTPFetcher(t), testLogger)
	l.baseURL = srv.URL

	info, err := l.Fetch(context.Background(), "B0ANKERHUB")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Title != "Anker PowerExpand 8-in-1 USB-C PD メディア ハブ" {
		t.Errorf("title = %q", info.Title)
	}
	if info.Brand != "Anker" || info.Price != 7990 || info.Rating != 4.4 || info.ReviewCount != 3210 {
		t.Errorf("info = %+v", info)
	}
	if info.ImageURL != "https://m.media-amazon.com/images/I/large.jpg" {
		t.Errorf("image = %q", info.ImageURL)
	}
	if info.Description != "8ポートを1台に\n4K HDMI出力" {
		t.Errorf("description = %q", info.Description)
	}

	if _, err := l.Fetch(context.Background(), "B0CAPTCHA1"); !errors.Is(err, types.ErrNoProductInfo) {
		t.Errorf("robot check page err = %v", err)
	}
	if _, err := l.Fetch(context.Background(), "bad"); !errors.Is(err, types.ErrNoProductInfo) {
		t.Errorf("invalid code err = %v", err)
	}
}

func TestParsePageStructuredFallback(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><head>
		<script type="application/ld+json">{"@type":"Product","name":"FlexiSpot E7","brand":{"name":"FlexiSpot"},"image":"https://example.com/e7.jpg","offers":{"price":"59800"}}</script>
		</head><body></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	info := parsePage(doc)
	if info.Title != "FlexiSpot E7" || info.Brand != "FlexiSpot" || info.Price != 59800 || info.ImageURL != "https://example.com/e7.jpg" {
		t.Errorf("info = %+v", info)
	}
}

func TestBrandLabelVariants(t *testing.T) {
	for in, want := range map[string]string{
		"ブランド: Logicool":     "Logicool",
		"Ankerのストアを表示":        "Anker",
		"Visit the BenQ Store": "BenQ",
		"エレコム":                 "エレコム",
	} {
		if got := strings.TrimSpace(brandLabel.ReplaceAllString(in, "")); got != want {
			t.Errorf("brand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFromHint(t *testing.T) {
	info := FromHint("B0AAAAAAA1", parser.Product{Name: "x", Price: 100, Image: "i"})
	if info.ASIN != "B0AAAAAAA1" || info.Title != "x" || info.ImageURL != "i" {
		t.Errorf("info = %+v", info)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url    string
		status ImageStatus
		done   bool
	}{
		{"", ImageMissing, true},
		{"https://via.placeholder.com/300", ImagePlaceholder, true},
		{"https://images.unsplash.com/photo-1", ImagePlaceholder, true},
		{"https://images.pexels.com/p.jpg", ImagePlaceholder, true},
		{"https://m.media-amazon.com/images/I/a.jpg", "", false},
	}
	for _, tt := range tests {
		c, done := Classify(tt.url)
		if done != tt.done || c.Status != tt.status {
			t.Errorf("Classify(%q) = %v %v", tt.url, c, done)
		}
	}
}

func TestImageValidatorCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
		case "/page":
			w.Header().Set("Content-Type", "text/html")
		case "/nohead.png":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("\x89PNG"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	v := NewImageValidator(newHTTPFetcher(t))
	ctx := context.Background()

	tests := []struct {
		path string
		want ImageStatus
	}{
		{"/ok.jpg", ImageValid},
		{"/page", ImageInvalid},
		{"/gone.jpg", ImageInvalid},
		{"/nohead.png", ImageValid},
	}
	for _, tt := range tests {
		if got := v.Check(ctx, srv.URL+tt.path); got.Status != tt.want {
			t.Errorf("Check(%s) = %+v, want %s", tt.path, got, tt.want)
		}
	}
	if got := v.Check(ctx, ""); got.Status != ImageMissing || got.OK() {
		t.Errorf("empty url = %+v", got)
	}
}
