// Package scheduler owns the rolling-window stat resets: weekly counters
// zero out at Sunday midnight, monthly counters on the first of the month.
//
// Resets only rewrite the two counters of their window; the totals and the
// other window are never touched. A store that has no stats yet is left
// alone, so a reset can never materialize an empty stats object.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/impulsevault/engine/store"
)

// Scheduler fires the periodic resets against a store.
type Scheduler struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler writing through the given store.
func New(st store.Store, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{store: st, logger: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NextWeeklyReset returns the first Sunday midnight strictly after the given
// instant, in its location.
func NextWeeklyReset(after time.Time) time.Time {
	day := time.Date(after.Year(), after.Month(), after.Day(), 0, 0, 0, 0, after.Location())
	next := day.AddDate(0, 0, (7-int(day.Weekday()))%7)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// NextMonthlyReset returns midnight on the first of the following month.
func NextMonthlyReset(after time.Time) time.Time {
	return time.Date(after.Year(), after.Month(), 1, 0, 0, 0, 0, after.Location()).AddDate(0, 1, 0)
}

// ResetWeekly zeroes the weekly counters. No-op when stats were never
// written.
func (s *Scheduler) ResetWeekly(ctx context.Context) error {
	return s.reset(ctx, "weekly", func(st *store.UserStats) {
		st.WeeklyImpulsesStopped = 0
		st.WeeklyMoneySaved = 0
	})
}

// ResetMonthly zeroes the monthly counters. No-op when stats were never
// written.
func (s *Scheduler) ResetMonthly(ctx context.Context) error {
	return s.reset(ctx, "monthly", func(st *store.UserStats) {
		st.MonthlyImpulsesStopped = 0
		st.MonthlyMoneySaved = 0
	})
}

func (s *Scheduler) reset(ctx context.Context, window string, zero func(*store.UserStats)) error {
	rec, err := s.store.Get(ctx, store.KeyUserStats)
	if err != nil {
		return fmt.Errorf("scheduler: read stats: %w", err)
	}
	if rec.UserStats == nil {
		return nil
	}

	stats := *rec.UserStats
	zero(&stats)
	if err := s.store.Set(ctx, store.Record{UserStats: &stats}); err != nil {
		return fmt.Errorf("scheduler: write stats: %w", err)
	}
	s.logger.Info("scheduler: counters reset", "window", window)
	return nil
}

// Run blocks, firing each reset at its boundary, until the context is
// cancelled. A failed reset is logged and retried at the next boundary.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.now()
		weekly := NextWeeklyReset(now)
		monthly := NextMonthlyReset(now)

		next := weekly
		if monthly.Before(next) {
			next = monthly
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		// Sunday the first fires both.
		if !next.Before(weekly) {
			if err := s.ResetWeekly(ctx); err != nil {
				s.logger.Error("scheduler: weekly reset", "error", err)
			}
		}
		if !next.Before(monthly) {
			if err := s.ResetMonthly(ctx); err != nil {
				s.logger.Error("scheduler: monthly reset", "error", err)
			}
		}
	}
}
