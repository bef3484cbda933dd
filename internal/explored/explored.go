// Package explored remembers which article URLs each search-based source has
// already processed, so repeated discovery runs only visit new content.
package explored

import (
	"context"
	"fmt"
	"time"

	"github.com/IshaanNene/deskrank/internal/types"
)

// Sources are the sources that keep an explored set.
var Sources = []types.SourceType{
	types.SourceNote,
	types.SourceYouTube,
	types.SourceZenn,
	types.SourceHatena,
}

// Record is the persisted explored state.
type Record struct {
	Note        []string  `json:"note"`
	YouTube     []string  `json:"youtube"`
	Zenn        []string  `json:"zenn"`
	Hatena      []string  `json:"hatena"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewRecord returns an empty record with all four sets initialized.
func NewRecord() *Record {
	return &Record{
		Note:    []string{},
		YouTube: []string{},
		Zenn:    []string{},
		Hatena:  []string{},
	}
}

// Store persists explored URLs per source.
type Store interface {
	// Load returns the full record. A missing or unreadable record yields an
	// empty one.
	Load(ctx context.Context) (*Record, error)

	// Save replaces the full record, stamping LastUpdated.
	Save(ctx context.Context, rec *Record) error

	// ExploredSet returns the URLs already visited for source.
	ExploredSet(ctx context.Context, source types.SourceType) (map[string]struct{}, error)

	// AddExploredURLs unions urls into the source's set and persists it.
	AddExploredURLs(ctx context.Context, source types.SourceType, urls []string) error

	// Summary returns the number of explored URLs per source.
	Summary(ctx context.Context) (map[types.SourceType]int, error)

	// Clear empties the given sources, or all of them when none are given.
	Clear(ctx context.Context, sources ...types.SourceType) error
}

// FilterUnexplored splits candidates into the ones whose URL is not yet in
// the source's explored set, and a count of the ones skipped.
func FilterUnexplored[T any](ctx context.Context, s Store, source types.SourceType, candidates []T, urlOf func(T) string) ([]T, int, error) {
	seen, err := s.ExploredSet(ctx, source)
	if err != nil {
		return nil, 0, err
	}
	unexplored := make([]T, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if _, ok := seen[urlOf(c)]; ok {
			skipped++
			continue
		}
		unexplored = append(unexplored, c)
	}
	return unexplored, skipped, nil
}

// urls returns a pointer to the slice backing source.
func (r *Record) urls(source types.SourceType) (*[]string, error) {
	switch source {
	case types.SourceNote:
		return &r.Note, nil
	case types.SourceYouTube:
		return &r.YouTube, nil
	case types.SourceZenn:
		return &r.Zenn, nil
	case types.SourceHatena:
		return &r.Hatena, nil
	}
	return nil, fmt.Errorf("%w: %q has no explored set", types.ErrUnknownSource, source)
}

// Set returns the explored URLs of source as a set.
func (r *Record) Set(source types.SourceType) (map[string]struct{}, error) {
	list, err := r.urls(source)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(*list))
	for _, u := range *list {
		set[u] = struct{}{}
	}
	return set, nil
}

// Add appends the URLs not already present and reports how many were new.
func (r *Record) Add(source types.SourceType, urls []string) (int, error) {
	list, err := r.urls(source)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(*list)+len(urls))
	for _, u := range *list {
		seen[u] = struct{}{}
	}
	added := 0
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		*list = append(*list, u)
		added++
	}
	return added, nil
}

// Reset empties the given sources, or all of them when none are given.
func (r *Record) Reset(sources ...types.SourceType) error {
	if len(sources) == 0 {
		sources = Sources
	}
	for _, s := range sources {
		list, err := r.urls(s)
		if err != nil {
			return err
		}
		*list = []string{}
	}
	return nil
}

// Counts returns the size of every set.
func (r *Record) Counts() map[types.SourceType]int {
	return map[types.SourceType]int{
		types.SourceNote:    len(r.Note),
		types.SourceYouTube: len(r.YouTube),
		types.SourceZenn:    len(r.Zenn),
		types.SourceHatena:  len(r.Hatena),
	}
}

// normalize dedupes every set and replaces nil slices so the record always
// serializes four arrays.
func (r *Record) normalize() {
	for _, s := range Sources {
		list, _ := r.urls(s)
		*list = unique(*list)
	}
}

// unique drops empty and repeated URLs, keeping the first occurrence.
func unique(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (r *Record) clone() *Record {
	c := &Record{
		Note:        append([]string{}, r.Note...),
		YouTube:     append([]string{}, r.YouTube...),
		Zenn:        append([]string{}, r.Zenn...),
		Hatena:      append([]string{}, r.Hatena...),
		LastUpdated: r.LastUpdated,
	}
	return c
}

// loadSaver is the whole-record persistence the file and memory stores share.
type loadSaver interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
}

func exploredSet(ctx context.Context, s loadSaver, source types.SourceType) (map[string]struct{}, error) {
	rec, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Set(source)
}

func addExploredURLs(ctx context.Context, s loadSaver, source types.SourceType, urls []string) error {
	rec, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if _, err := rec.Add(source, urls); err != nil {
		return err
	}
	return s.Save(ctx, rec)
}

func summary(ctx context.Context, s loadSaver) (map[types.SourceType]int, error) {
	rec, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rec.Counts(), nil
}

func clearSources(ctx context.Context, s loadSaver, sources []types.SourceType) error {
	rec, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := rec.Reset(sources...); err != nil {
		return err
	}
	return s.Save(ctx, rec)
}
