package schedule

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestParse(t *testing.T) {
	if _, err := Parse("not a cron"); err == nil {
		t.Error("invalid expression accepted")
	}

	s, err := Parse("0 3 * * *")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	from := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	if got := s.Next(from); !got.Equal(want) {
		t.Errorf("Next = %v, want %v", got, want)
	}

	daily, err := Parse("@daily")
	if err != nil {
		t.Fatalf("Parse(@daily): %v", err)
	}
	if got := daily.Next(from); !got.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("@daily Next = %v", got)
	}
}

func TestRunnerRunsAtActivations(t *testing.T) {
	s, _ := Parse("0 * * * *")
	clock := time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	r := NewRunner(s, func(context.Context) error {
		runs++
		if runs == 2 {
			return errors.New("busy")
		}
		if runs == 3 {
			cancel()
		}
		return nil
	}, testLogger)

	var waits []time.Duration
	r.now = func() time.Time { return clock }
	r.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		waits = append(waits, d)
		clock = clock.Add(d)
		return nil
	}

	err := r.Run(ctx, true)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
	if runs != 3 {
		t.Errorf("runs = %d, want 3", runs)
	}
	if len(waits) != 2 || waits[0] != 45*time.Minute || waits[1] != time.Hour {
		t.Errorf("waits = %v", waits)
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
	if err := sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep err = %v", err)
	}
}
