// Package schedule repeats a run on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Schedule is a parsed cron expression. Five-field expressions and the
// @hourly/@daily/@weekly shorthands are accepted.
type Schedule struct {
	spec string
	expr *cronexpr.Expression
}

// Parse parses a cron expression.
func Parse(spec string) (*Schedule, error) {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	return &Schedule{spec: spec, expr: expr}, nil
}

func (s *Schedule) String() string { return s.spec }

// Next returns the first activation after from, or the zero time when the
// expression never fires again.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.expr.Next(from)
}

// Runner calls a job at every activation of a schedule. Runs never overlap:
// the next activation is computed after the previous run returns.
type Runner struct {
	schedule *Schedule
	job      Job
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner.
func NewRunner(s *Schedule, job Job, logger *slog.Logger) *Runner {
	return &Runner{
		schedule: s,
		job:      job,
		logger:   logger.With("component", "schedule", "cron", s.String()),
		now:      time.Now,
		sleep:    sleep,
	}
}

// Run blocks until ctx is done. With immediate set the job also runs once
// at start. Job errors are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context, immediate bool) error {
	if immediate {
		r.runOnce(ctx)
	}
	for {
		next := r.schedule.Next(r.now())
		if next.IsZero() {
			return fmt.Errorf("cron %q has no future activation", r.schedule)
		}
		r.logger.Info("next run scheduled", "at", next.Format(time.RFC3339))

		if err := r.sleep(ctx, next.Sub(r.now())); err != nil {
			return err
		}
		r.runOnce(ctx)
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	start := r.now()
	if err := r.job(ctx); err != nil {
		r.logger.Error("scheduled run failed", "error", err)
		return
	}
	r.logger.Info("scheduled run complete", "elapsed", r.now().Sub(start).Round(time.Millisecond))
}

func sleep(ctx context.Context, d time.Duration) error {
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
