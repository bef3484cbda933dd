package fetcher

import (
	"context"
	"sync"

	"github.com/IshaanNene/deskrank/internal/types"
)

// Lazy creates its fetcher on the first Fetch. A failed creation is not
// retried; every later Fetch returns the same error.
type Lazy struct {
	kind   string
	create func() (Fetcher, error)

	mu  sync.Mutex
	f   Fetcher
	err error
}

// NewLazy wraps create. kind is reported by Type before creation.
func NewLazy(kind string, create func() (Fetcher, error)) *Lazy {
	return &Lazy{kind: kind, create: create}
}

func (l *Lazy) get() (Fetcher, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil && l.err == nil {
		l.f, l.err = l.create()
	}
	return l.f, l.err
}

// Fetch implements Fetcher.
func (l *Lazy) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	f, err := l.get()
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, req)
}

// Started reports whether the underlying fetcher was created.
func (l *Lazy) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f != nil
}

// Close closes the underlying fetcher if it was created.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

// Type implements Fetcher.
func (l *Lazy) Type() string { return l.kind }
