package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/IshaanNene/deskrank/internal/types"
)

// FileSink writes snapshots as <kind>-YYYY-MM-DD.json files in one directory.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates a snapshot directory writer.
func NewFileSink(dir string, logger *slog.Logger) *FileSink {
	return &FileSink{
		dir:    dir,
		logger: logger.With("component", "file_sink", "dir", dir),
	}
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file a snapshot is written to.
func (s *FileSink) Path(sn Snapshot) string {
	return SnapshotPath(s.dir, sn.Kind, sn.Date)
}

// SnapshotPath names the snapshot file of kind for the day of t.
func SnapshotPath(dir, kind string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", kind, DateStamp(t)))
}

func (s *FileSink) Write(_ context.Context, sn Snapshot) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("create output dir: %w", err)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sn.Payload); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("encode JSON: %w", err)}
	}

	path := s.Path(sn)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &types.StorageError{Backend: "file", Err: err}
	}

	s.logger.Info("snapshot written", "path", path)
	return nil
}

func (s *FileSink) Close() error { return nil }

// Latest returns the newest snapshot of kind in dir. Names sort by date, so
// the lexically last match wins.
func Latest(dir, kind string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, kind+"-*.json"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s/%s-*.json", types.ErrNoSnapshot, dir, kind)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// ReadLatest decodes the newest snapshot of kind into v and returns its path.
func ReadLatest(dir, kind string, v any) (string, error) {
	path, err := Latest(dir, kind)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &types.StorageError{Backend: "file", Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return "", &types.StorageError{Backend: "file", Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return path, nil
}
