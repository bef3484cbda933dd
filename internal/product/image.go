package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/IshaanNene/deskrank/internal/fetcher"
	"github.com/IshaanNene/deskrank/internal/types"
)

// ImageStatus classifies a catalog image URL.
type ImageStatus string

const (
	ImageValid       ImageStatus = "valid"
	ImageInvalid     ImageStatus = "invalid"
	ImageMissing     ImageStatus = "missing"
	ImagePlaceholder ImageStatus = "placeholder"
)

// ImageCheck is the outcome of checking one image URL.
type ImageCheck struct {
	Status ImageStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// OK reports whether the image needs no fixing.
func (c ImageCheck) OK() bool { return c.Status == ImageValid }

var stockHosts = []string{"unsplash.com", "pexels.com", "pixabay.com"}

// Classify checks what can be told from the URL alone. It returns ok=false
// when the URL is worth probing over the network.
func Classify(imageURL string) (ImageCheck, bool) {
	switch {
	case strings.TrimSpace(imageURL) == "":
		return ImageCheck{Status: ImageMissing, Reason: "no image url"}, true
	case strings.Contains(imageURL, "placeholder"):
		return ImageCheck{Status: ImagePlaceholder, Reason: "placeholder image"}, true
	}
	for _, h := range stockHosts {
		if strings.Contains(imageURL, h) {
			return ImageCheck{Status: ImagePlaceholder, Reason: "stock photo, not the product"}, true
		}
	}
	return ImageCheck{}, false
}

// headFetcher is implemented by fetchers that can issue HEAD requests.
type headFetcher interface {
	Head(ctx context.Context, rawURL string) (int, string, error)
}

// ImageValidator probes image URLs.
type ImageValidator struct {
	fetcher fetcher.Fetcher
}

// NewImageValidator creates a validator. HEAD is used when f supports it,
// with GET as the fallback.
func NewImageValidator(f fetcher.Fetcher) *ImageValidator {
	return &ImageValidator{fetcher: f}
}

// Check classifies imageURL, probing it when the URL alone is not enough.
func (v *ImageValidator) Check(ctx context.Context, imageURL string) ImageCheck {
	if c, done := Classify(imageURL); done {
		return c
	}
	status, contentType, err := v.probe(ctx, imageURL)
	if err != nil {
		return ImageCheck{Status: ImageInvalid, Reason: err.Error()}
	}
	if status < 200 || status >= 300 {
		return ImageCheck{Status: ImageInvalid, Reason: fmt.Sprintf("HTTP %d", status)}
	}
	if !strings.HasPrefix(contentType, "image/") {
		return ImageCheck{Status: ImageInvalid, Reason: fmt.Sprintf("%v: %q", types.ErrNotImage, contentType)}
	}
	return ImageCheck{Status: ImageValid}
}

func (v *ImageValidator) probe(ctx context.Context, imageURL string) (int, string, error) {
	if h, ok := v.fetcher.(headFetcher); ok {
		status, ct, err := h.Head(ctx, imageURL)
		// some CDNs refuse HEAD
		if err == nil && status != 405 && status != 403 {
			return status, ct, nil
		}
	}
	req, err := types.NewRequest(imageURL)
	if err != nil {
		return 0, "", err
	}
	resp, err := v.fetcher.Fetch(ctx, req)
	if err != nil {
		return 0, "", err
	}
	ct := resp.ContentType
	if ct == "" {
		ct = resp.Headers.Get("Content-Type")
	}
	return resp.StatusCode, ct, nil
}
