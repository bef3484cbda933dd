// Package fetcher retrieves source pages and API responses, either with a
// plain HTTP client or through a headless browser for pages that render
// client-side.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/deskrank/internal/config"
	"github.com/IshaanNene/deskrank/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the fetcher of the given kind ("http" or "browser").
func New(kind string, cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch kind {
	case "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	}
	return nil, fmt.Errorf("unknown fetcher type %q", kind)
}

// Get fetches rawURL and fails on non-2xx responses.
func Get(ctx context.Context, f Fetcher, rawURL string) (*types.Response, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	return Do(ctx, f, req)
}

// Do fetches req and fails on non-2xx responses.
func Do(ctx context.Context, f Fetcher, req *types.Request) (*types.Response, error) {
	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status"),
		}
	}
	return resp, nil
}
