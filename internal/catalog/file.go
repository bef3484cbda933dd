package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/IshaanNene/deskrank/internal/types"
)

// File is the whole items.json document. Top-level keys other than "items"
// are kept in Extra.
type File struct {
	Items []Item

	Extra map[string]json.RawMessage
}

func (f File) MarshalJSON() ([]byte, error) {
	items := f.Items
	if items == nil {
		items = []Item{}
	}
	known, err := marshalNoEscape(struct {
		Items []Item `json:"items"`
	}{items})
	if err != nil {
		return nil, err
	}
	return appendExtra(known, f.Extra)
}

func (f *File) UnmarshalJSON(data []byte) error {
	var doc struct {
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	extra, err := unknownKeys(data, map[string]struct{}{"items": {}})
	if err != nil {
		return err
	}
	f.Items = doc.Items
	f.Extra = extra
	return nil
}

// Load reads the catalog at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "catalog", Err: err}
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &types.StorageError{Backend: "catalog", Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return &f, nil
}

// Save writes the catalog to path through a temporary file and rename.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "catalog", Err: err}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return &types.StorageError{Backend: "catalog", Err: err}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return &types.StorageError{Backend: "catalog", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &types.StorageError{Backend: "catalog", Err: err}
	}
	return nil
}

// ASINs returns the set of product codes in the catalog.
func (f *File) ASINs() map[string]struct{} {
	out := make(map[string]struct{}, len(f.Items))
	for _, it := range f.Items {
		if a := it.ASIN(); a != "" {
			out[a] = struct{}{}
		}
	}
	return out
}
