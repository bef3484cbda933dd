package explored

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/IshaanNene/deskrank/internal/types"
)

// FileStore keeps the explored record in a single JSON file that is rewritten
// wholesale on every save.
type FileStore struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "explored_file"),
	}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Load reads the record. A missing file or corrupt content yields an empty
// record; corruption is logged.
func (s *FileStore) Load(ctx context.Context) (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("explored file unreadable, starting empty", "path", s.path, "error", err)
		}
		return NewRecord(), nil
	}

	rec := NewRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		s.logger.Warn("explored file corrupt, starting empty", "path", s.path, "error", err)
		return NewRecord(), nil
	}
	rec.normalize()
	return rec, nil
}

// Save writes the record to a temp file and renames it into place.
func (s *FileStore) Save(ctx context.Context, rec *Record) error {
	rec.normalize()
	rec.LastUpdated = s.now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &types.StorageError{Backend: "explored_file", Err: fmt.Errorf("create dir: %w", err)}
	}

	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return &types.StorageError{Backend: "explored_file", Err: err}
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "explored_file", Err: fmt.Errorf("encode: %w", err)}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "explored_file", Err: err}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return &types.StorageError{Backend: "explored_file", Err: fmt.Errorf("rename: %w", err)}
	}
	return nil
}

func (s *FileStore) ExploredSet(ctx context.Context, source types.SourceType) (map[string]struct{}, error) {
	return exploredSet(ctx, s, source)
}

func (s *FileStore) AddExploredURLs(ctx context.Context, source types.SourceType, urls []string) error {
	if err := addExploredURLs(ctx, s, source, urls); err != nil {
		return err
	}
	s.logger.Debug("explored urls saved", "source", source, "count", len(urls))
	return nil
}

func (s *FileStore) Summary(ctx context.Context) (map[types.SourceType]int, error) {
	return summary(ctx, s)
}

func (s *FileStore) Clear(ctx context.Context, sources ...types.SourceType) error {
	return clearSources(ctx, s, sources)
}
