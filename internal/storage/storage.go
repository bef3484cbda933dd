// Package storage persists the dated outputs of discover and collect runs
// and keeps the score history.
package storage

import (
	"context"
	"time"
)

// Snapshot kinds.
const (
	KindDiscovered = "discovered"
	KindCollected  = "collected"
)

// Snapshot is one dated run output. Payload must encode to a JSON array.
type Snapshot struct {
	Kind    string
	RunID   string
	Date    time.Time
	Payload any
}

// Sink is the interface for all snapshot backends.
type Sink interface {
	// Write persists a snapshot. A second write for the same kind and day
	// replaces the first.
	Write(ctx context.Context, s Snapshot) error

	// Close releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// DateStamp formats the day part of snapshot names.
func DateStamp(t time.Time) string {
	return t.Format("2006-01-02")
}
