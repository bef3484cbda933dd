package engine

import (
	"context"
	"fmt"

	"github.com/IshaanNene/deskrank/internal/catalog"
	"github.com/IshaanNene/deskrank/internal/product"
)

// ImageResult is the check outcome for one item.
type ImageResult struct {
	ItemID   string
	Name     string
	ASIN     string
	ImageURL string
	Check    product.ImageCheck

	// FixedURL is set when a fix run found a replacement image.
	FixedURL string
}

// ImageReport summarizes an image check.
type ImageReport struct {
	Results     []ImageResult
	Valid       int
	Broken      int
	Fixed       int
	StillBroken []ImageResult
	Saved       bool
}

// CheckImages validates every item image. With fix set, broken images are
// replaced with the one on the product page and the catalog is rewritten.
func (e *Engine) CheckImages(ctx context.Context, fix bool) (*ImageReport, error) {
	stats, err := e.begin("images")
	if err != nil {
		return nil, err
	}
	defer e.end(stats)

	if e.images == nil {
		return nil, fmt.Errorf("no image checker configured")
	}
	cat, err := e.loadCatalog(false)
	if err != nil {
		return nil, err
	}

	report := &ImageReport{}
	var broken []int
	for i, it := range cat.Items {
		if i > 0 {
			if err := e.wait(ctx, e.cfg.Collect.ImageDelay); err != nil {
				return report, err
			}
		}
		check := e.images.Check(ctx, it.ImageURL)
		stats.ImagesChecked.Add(1)
		report.Results = append(report.Results, ImageResult{
			ItemID:   it.ID,
			Name:     it.Name,
			ASIN:     it.ASIN(),
			ImageURL: it.ImageURL,
			Check:    check,
		})
		if check.OK() {
			report.Valid++
			continue
		}
		report.Broken++
		stats.ImagesBroken.Add(1)
		broken = append(broken, i)
		e.logger.Warn("broken image", "item", it.ID, "status", check.Status, "reason", check.Reason)
	}

	if !fix || len(broken) == 0 {
		return report, nil
	}

	for n, i := range broken {
		res := &report.Results[i]
		if n > 0 {
			if err := e.wait(ctx, e.cfg.Collect.ImageFixDelay); err != nil {
				return report, err
			}
		}
		url, err := e.replacementImage(ctx, res.ASIN)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			e.logger.Warn("no replacement image", "item", res.ItemID, "error", err)
			report.StillBroken = append(report.StillBroken, *res)
			continue
		}
		cat.Items[i].ImageURL = url
		res.FixedURL = url
		report.Fixed++
		stats.ImagesFixed.Add(1)
	}

	if report.Fixed == 0 {
		return report, nil
	}
	if err := catalog.Save(e.cfg.Paths.Catalog, cat); err != nil {
		return report, fmt.Errorf("save catalog: %w", err)
	}
	report.Saved = true
	return report, nil
}

func (e *Engine) replacementImage(ctx context.Context, asin string) (string, error) {
	if asin == "" {
		return "", fmt.Errorf("item has no product code")
	}
	if e.lookup == nil {
		return "", fmt.Errorf("no product lookup configured")
	}
	info, err := e.lookup.Fetch(ctx, asin)
	if err != nil {
		return "", err
	}
	if info.ImageURL == "" {
		return "", fmt.Errorf("product page for %s has no image", asin)
	}
	return info.ImageURL, nil
}
