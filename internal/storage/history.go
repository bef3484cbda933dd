package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/IshaanNene/deskrank/internal/score"
	"github.com/IshaanNene/deskrank/internal/types"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS score_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	item_id     TEXT NOT NULL,
	score       INTEGER NOT NULL,
	twitter     INTEGER NOT NULL DEFAULT 0,
	youtube     INTEGER NOT NULL DEFAULT 0,
	amazon      INTEGER NOT NULL DEFAULT 0,
	note        INTEGER NOT NULL DEFAULT 0,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_history_item ON score_history(item_id, recorded_at);
`

// timeLayout has fixed width so recorded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// HistoryEntry is one item's score at the end of a collect run.
type HistoryEntry struct {
	RunID      string
	ItemID     string
	Score      int
	Social     score.SocialScore
	RecordedAt time.Time
}

// History stores collect-run scores in SQLite.
type History struct {
	db     *sql.DB
	owned  bool
	logger *slog.Logger
}

// OpenHistory opens (creating if needed) the history database at dsn.
func OpenHistory(ctx context.Context, dsn string, logger *slog.Logger) (*History, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	// One connection keeps ":memory:" databases shared and serialises writes.
	db.SetMaxOpenConns(1)

	h, err := NewHistory(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	h.owned = true
	return h, nil
}

// NewHistory uses an existing connection and applies the schema.
func NewHistory(ctx context.Context, db *sql.DB, logger *slog.Logger) (*History, error) {
	for _, stmt := range strings.Split(historySchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("migrate: %w", err)}
		}
	}
	return &History{db: db, logger: logger.With("component", "score_history")}, nil
}

// Record appends entries in one transaction.
func (h *History) Record(ctx context.Context, entries []HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer tx.Rollback()

	for _, e := range entries {
		_, err := sq.Insert("score_history").
			Columns("run_id", "item_id", "score", "twitter", "youtube", "amazon", "note", "recorded_at").
			Values(e.RunID, e.ItemID, e.Score, e.Social.Twitter, e.Social.YouTube, e.Social.Amazon, e.Social.Note,
				e.RecordedAt.UTC().Format(timeLayout)).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("insert %s: %w", e.ItemID, err)}
		}
	}
	if err := tx.Commit(); err != nil {
		return &types.StorageError{Backend: "sqlite", Err: err}
	}
	h.logger.Debug("score history recorded", "entries", len(entries))
	return nil
}

// ItemHistory returns an item's recorded scores, newest first. limit <= 0
// returns all of them.
func (h *History) ItemHistory(ctx context.Context, itemID string, limit int) ([]HistoryEntry, error) {
	q := sq.Select("run_id", "item_id", "score", "twitter", "youtube", "amazon", "note", "recorded_at").
		From("score_history").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("recorded_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	rows, err := q.RunWith(h.db).QueryContext(ctx)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: err}
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e  HistoryEntry
			at string
		)
		if err := rows.Scan(&e.RunID, &e.ItemID, &e.Score,
			&e.Social.Twitter, &e.Social.YouTube, &e.Social.Amazon, &e.Social.Note, &at); err != nil {
			return nil, &types.StorageError{Backend: "sqlite", Err: err}
		}
		e.RecordedAt, _ = time.Parse(timeLayout, at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database if History opened it.
func (h *History) Close() error {
	if !h.owned {
		return nil
	}
	return h.db.Close()
}
