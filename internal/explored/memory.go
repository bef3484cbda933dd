package explored

import (
	"context"
	"sync"
	"time"

	"github.com/IshaanNene/deskrank/internal/types"
)

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rec: NewRecord()}
}

func (s *MemoryStore) Load(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := rec.clone()
	c.normalize()
	c.LastUpdated = time.Now().UTC()
	s.rec = c
	return nil
}

func (s *MemoryStore) ExploredSet(ctx context.Context, source types.SourceType) (map[string]struct{}, error) {
	return exploredSet(ctx, s, source)
}

func (s *MemoryStore) AddExploredURLs(ctx context.Context, source types.SourceType, urls []string) error {
	return addExploredURLs(ctx, s, source, urls)
}

func (s *MemoryStore) Summary(ctx context.Context) (map[types.SourceType]int, error) {
	return summary(ctx, s)
}

func (s *MemoryStore) Clear(ctx context.Context, sources ...types.SourceType) error {
	return clearSources(ctx, s, sources)
}
