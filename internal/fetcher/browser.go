package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/types"
)

// BrowserFetcher implements Fetcher using a headless Chromium driven by Rod.
// note.com, Zenn and the Amazon ranking pages render their lists client-side
// and need it.
type BrowserFetcher struct {
	browser *rod.Browser
	cfg     *config.FetcherConfig
	logger  *slog.Logger
}

// NewBrowserFetcher launches a browser and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:    &cfg.Fetcher,
		logger: logger.With("component", "browser_fetcher"),
	}

	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("lang", "ja-JP").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "stealth", bf.cfg.Stealth)
	return bf, nil
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	page, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	defer page.Close()
	page = page.Context(ctx)

	headers := []string{}
	if bf.cfg.AcceptLanguage != "" {
		headers = append(headers, "Accept-Language", bf.cfg.AcceptLanguage)
	}
	for k, vals := range req.Headers {
		for _, v := range vals {
			headers = append(headers, k, v)
		}
	}
	if len(headers) > 0 {
		if _, err := page.SetExtraHeaders(headers); err != nil {
			bf.logger.Warn("failed to set headers", "error", err)
		}
	}

	timeout := bf.cfg.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	if err := page.Timeout(timeout).Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	if err := page.Timeout(timeout).WaitStable(500 * time.Millisecond); err != nil {
		bf.logger.Debug("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	if req.WaitSelector != "" {
		el, err := page.Timeout(10 * time.Second).Element(req.WaitSelector)
		if err == nil {
			err = el.WaitVisible()
		}
		if err != nil {
			bf.logger.Debug("wait selector timeout", "selector", req.WaitSelector, "error", err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	// Rod does not expose the document status code.
	resp := types.NewBrowserResponse(req, 200, []byte(html), finalURL, time.Since(start))

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", resp.FetchDuration,
	)
	return resp, nil
}

func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.cfg.Stealth {
		p, err := stealth.Page(bf.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return p, nil
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
