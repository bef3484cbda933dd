package fetcher

import (
	"context"
	"math/rand"
	"time"
)

// Throttle inserts the courtesy delay between requests to one source.
type Throttle interface {
	// Wait blocks for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error
}

// Sleeper is the real fixed-interval throttle.
type Sleeper struct {
	// Jitter spreads each delay by ±25%.
	Jitter bool
}

func (s Sleeper) Wait(ctx context.Context, d time.Duration) error {
	if s.Jitter {
		d = RandomDelay(d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay returns immediately. Used by tests and dry runs.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// RandomDelay returns a random delay around the base duration (±25%).
func RandomDelay(base time.Duration) time.Duration {
	jitter := float64(base) * 0.25
	return base + time.Duration(rand.Float64()*2*jitter-jitter)
}
