package scheduler

import (
	"testing"
	"time"
)

func at(wd time.Weekday, hour, min int) time.Time {
	// 2025-06-09 is a Monday.
	base := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(wd-time.Monday)).
		Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func TestInTradingWindow(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"morning session open", at(time.Monday, 9, 20), true},
		{"mid morning", at(time.Wednesday, 10, 30), true},
		{"lunch break", at(time.Tuesday, 12, 0), false},
		{"afternoon session", at(time.Thursday, 14, 0), true},
		{"after close", at(time.Friday, 15, 30), false},
		{"before premarket", at(time.Monday, 9, 0), false},
		{"saturday", at(time.Saturday, 10, 0), false},
		{"sunday", at(time.Sunday, 10, 0), false},
		{"session end inclusive", at(time.Monday, 11, 35), true},
		{"just past session end", at(time.Monday, 11, 36), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := inTradingWindow(tc.t); got != tc.want {
				t.Errorf("inTradingWindow(%s) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

func TestAlignToInterval(t *testing.T) {
	now := time.Date(2025, 6, 9, 9, 23, 17, 0, time.UTC)
	next := alignToInterval(now, 5*time.Minute)
	want := time.Date(2025, 6, 9, 9, 25, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("alignToInterval = %s, want %s", next, want)
	}

	// Exactly on a boundary still advances to the next tick.
	onBoundary := time.Date(2025, 6, 9, 9, 25, 0, 0, time.UTC)
	next = alignToInterval(onBoundary, 5*time.Minute)
	if !next.Equal(onBoundary.Add(5 * time.Minute)) {
		t.Errorf("boundary must advance a full interval, got %s", next)
	}
}
