package catalog

// MergeResult splits discovered items by whether they can join the catalog.
type MergeResult struct {
	// NewItems have a product code absent from the catalog.
	NewItems []Item
	// Duplicates are already in the catalog or repeat an earlier entry.
	Duplicates []Item
	// MissingASIN have no product code and are never merged.
	MissingASIN []Item
}

// MergeDiscovered selects the discovered items that are new to existing.
func MergeDiscovered(existing, discovered []Item) MergeResult {
	known := make(map[string]struct{}, len(existing))
	for _, it := range existing {
		if a := it.ASIN(); a != "" {
			known[a] = struct{}{}
		}
	}

	var res MergeResult
	for _, it := range discovered {
		a := it.ASIN()
		switch _, dup := known[a]; {
		case a == "":
			res.MissingASIN = append(res.MissingASIN, it)
		case dup:
			res.Duplicates = append(res.Duplicates, it)
		default:
			known[a] = struct{}{}
			res.NewItems = append(res.NewItems, it)
		}
	}
	return res
}

// Apply appends the new items, keeping existing items and their order.
func (f *File) Apply(res MergeResult) {
	f.Items = append(f.Items, res.NewItems...)
}
