package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/impulsevault/engine/store"
)

func seededStats(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemory()
	stats := store.UserStats{
		TotalImpulsesStopped: 9, TotalMoneySaved: 900,
		WeeklyImpulsesStopped: 3, WeeklyMoneySaved: 300,
		MonthlyImpulsesStopped: 5, MonthlyMoneySaved: 500,
	}
	if err := s.Set(context.Background(), store.Record{UserStats: &stats}); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestResetWeekly(t *testing.T) {
	ctx := context.Background()
	s := seededStats(t)

	if err := New(s, nil).ResetWeekly(ctx); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(ctx, store.KeyUserStats)
	got := *rec.UserStats
	want := store.UserStats{
		TotalImpulsesStopped: 9, TotalMoneySaved: 900,
		MonthlyImpulsesStopped: 5, MonthlyMoneySaved: 500,
	}
	if got != want {
		t.Fatalf("weekly reset: %+v", got)
	}
}

func TestResetMonthly(t *testing.T) {
	ctx := context.Background()
	s := seededStats(t)

	if err := New(s, nil).ResetMonthly(ctx); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(ctx, store.KeyUserStats)
	got := *rec.UserStats
	want := store.UserStats{
		TotalImpulsesStopped: 9, TotalMoneySaved: 900,
		WeeklyImpulsesStopped: 3, WeeklyMoneySaved: 300,
	}
	if got != want {
		t.Fatalf("monthly reset: %+v", got)
	}
}

func TestResetWithoutStatsIsNoop(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	sched := New(s, nil)

	if err := sched.ResetWeekly(ctx); err != nil {
		t.Fatal(err)
	}
	if err := sched.ResetMonthly(ctx); err != nil {
		t.Fatal(err)
	}

	rec, _ := s.Get(ctx, store.KeyUserStats)
	if rec.UserStats != nil {
		t.Fatalf("reset materialized stats: %+v", rec.UserStats)
	}
}

func TestNextWeeklyReset(t *testing.T) {
	cases := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "midweek",
			after: time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC), // Wednesday
			want:  time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "sunday noon skips to next week",
			after: time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "exactly at boundary skips to next week",
			after: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextWeeklyReset(tc.after); !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNextMonthlyReset(t *testing.T) {
	cases := []struct {
		name  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "midmonth",
			after: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "year rollover",
			after: time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC),
			want:  time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "on the first still waits a month",
			after: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextMonthlyReset(tc.after); !got.Equal(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRunFiresBothAtCoincidingBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := seededStats(t)

	// 2026-03-01 is both a Sunday and the first of the month. The clock
	// starts just short of that boundary, so the first timer fires almost
	// immediately and both windows reset.
	boundary := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	fired := false
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		if !fired {
			fired = true
			return boundary.Add(-5 * time.Millisecond)
		}
		return boundary.Add(time.Millisecond)
	}

	sched := New(s, nil, WithClock(clock))
	go sched.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := s.Get(ctx, store.KeyUserStats)
		if err != nil {
			t.Fatal(err)
		}
		got := *rec.UserStats
		if got.WeeklyImpulsesStopped == 0 && got.MonthlyImpulsesStopped == 0 {
			if got.TotalImpulsesStopped != 9 {
				t.Fatalf("totals must survive resets: %+v", got)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("resets never fired")
}
