package engine

import (
	"context"
	"fmt"

	"github.com/IshaanNene/deskrank/internal/catalog"
	"github.com/IshaanNene/deskrank/internal/storage"
)

// MergeReport summarizes a merge of the latest discovered snapshot.
type MergeReport struct {
	SnapshotPath string
	Discovered   int
	Result       catalog.MergeResult
	Applied      bool
	CatalogSize  int
}

// Merge compares the newest discovered snapshot with the catalog. With apply
// set the new items are appended and the catalog is rewritten.
func (e *Engine) Merge(ctx context.Context, apply bool) (*MergeReport, error) {
	stats, err := e.begin("merge")
	if err != nil {
		return nil, err
	}
	defer e.end(stats)

	var discovered []catalog.Item
	path, err := storage.ReadLatest(e.cfg.Paths.DiscoveredDir, storage.KindDiscovered, &discovered)
	if err != nil {
		return nil, err
	}

	cat, err := e.loadCatalog(false)
	if err != nil {
		return nil, err
	}

	res := catalog.MergeDiscovered(cat.Items, discovered)
	report := &MergeReport{
		SnapshotPath: path,
		Discovered:   len(discovered),
		Result:       res,
		CatalogSize:  len(cat.Items),
	}
	for _, it := range res.MissingASIN {
		e.logger.Warn("discovered item has no product code", "id", it.ID, "name", it.Name)
	}

	if !apply || len(res.NewItems) == 0 {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	cat.Apply(res)
	if err := catalog.Save(e.cfg.Paths.Catalog, cat); err != nil {
		return report, fmt.Errorf("save catalog: %w", err)
	}
	report.Applied = true
	report.CatalogSize = len(cat.Items)
	e.logger.Info("catalog updated", "added", len(res.NewItems), "total", len(cat.Items))
	return report, nil
}
