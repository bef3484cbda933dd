package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	f, err := NewHTTPFetcher(config.DefaultConfig(), testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestHTTPFetcherDecodesBrotli(t *testing.T) {
	const page = "<html><body><a href=\"/dp/B0TESTASIN\">x</a></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write([]byte(page))
		bw.Close()
		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	resp, err := Get(context.Background(), newTestFetcher(t), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != page {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestHTTPFetcherDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		gw.Write([]byte("hello"))
		gw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	resp, err := Get(context.Background(), newTestFetcher(t), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestGetRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Get(context.Background(), newTestFetcher(t), srv.URL)
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if fe.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", fe.StatusCode)
	}
}

func TestHTTPFetcherHeaders(t *testing.T) {
	var gotUA, gotLang, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotCustom = r.Header.Get("X-Goog-Api-Key")
	}))
	defer srv.Close()

	req, _ := types.NewRequest(srv.URL)
	req.Headers.Set("X-Goog-Api-Key", "k")
	if _, err := Do(context.Background(), newTestFetcher(t), req); err != nil {
		t.Fatal(err)
	}
	if gotUA == "" {
		t.Error("missing User-Agent")
	}
	if gotLang != "ja-JP,ja;q=0.9" {
		t.Errorf("Accept-Language = %q", gotLang)
	}
	if gotCustom != "k" {
		t.Errorf("custom header = %q", gotCustom)
	}
}

func TestUserAgentRotation(t *testing.T) {
	f := newTestFetcher(t)
	a, b := f.nextUserAgent(), f.nextUserAgent()
	if a == b {
		t.Errorf("expected rotation between two agents, got %q twice", a)
	}
}

func TestHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s", r.Method)
		}
		w.Header().Set("Content-Type", "image/jpeg")
	}))
	defer srv.Close()

	status, ct, err := newTestFetcher(t).Head(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if status != 200 || ct != "image/jpeg" {
		t.Errorf("status=%d ct=%q", status, ct)
	}
}

func TestNewRequestRejectsBadScheme(t *testing.T) {
	if _, err := types.NewRequest("ftp://example.com"); !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("err = %v, want ErrInvalidURL", err)
	}
}

func TestSleeperHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleeper{}.Wait(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait should return immediately on cancelled context")
	}
}

func TestNoDelay(t *testing.T) {
	if err := (NoDelay{}).Wait(context.Background(), time.Hour); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestRandomDelayBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 100; i++ {
		d := RandomDelay(base)
		if d < 750*time.Millisecond || d > 1250*time.Millisecond {
			t.Fatalf("delay %v outside ±25%%", d)
		}
	}
}

type countingFetcher struct {
	fetches int
	closed  bool
}

func (c *countingFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	c.fetches++
	return &types.Response{StatusCode: http.StatusOK}, nil
}
func (c *countingFetcher) Close() error { c.closed = true; return nil }
func (c *countingFetcher) Type() string { return "browser" }

func TestLazyCreatesOnFirstFetch(t *testing.T) {
	inner := &countingFetcher{}
	created := 0
	l := NewLazy("browser", func() (Fetcher, error) {
		created++
		return inner, nil
	})

	if l.Started() || created != 0 {
		t.Fatal("fetcher created before first fetch")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close before start: %v", err)
	}

	req, _ := types.NewRequest("https://example.com/")
	for range 2 {
		if _, err := l.Fetch(context.Background(), req); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if created != 1 || inner.fetches != 2 || !l.Started() {
		t.Errorf("created=%d fetches=%d started=%v", created, inner.fetches, l.Started())
	}
	l.Close()
	if !inner.closed {
		t.Error("underlying fetcher not closed")
	}
}

func TestLazyKeepsCreateError(t *testing.T) {
	boom := errors.New("no chrome")
	calls := 0
	l := NewLazy("browser", func() (Fetcher, error) {
		calls++
		return nil, boom
	})
	req, _ := types.NewRequest("https://example.com/")
	for range 2 {
		if _, err := l.Fetch(context.Background(), req); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times", calls)
	}
	if l.Type() != "browser" {
		t.Errorf("Type = %q", l.Type())
	}
}
