package domain

import (
	"testing"
	"time"
)

func TestRemainingMatchesElapsedWholeSeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for timer := 1; timer <= 60; timer += 7 {
		for elapsed := 0; elapsed <= 70; elapsed++ {
			want := timer - elapsed
			if want < 0 {
				want = 0
			}
			got := Remaining(start, timer, start.Add(time.Duration(elapsed)*time.Second))
			if got != want {
				t.Fatalf("timer=%d elapsed=%d: expected %d, got %d", timer, elapsed, want, got)
			}
		}
	}
}

func TestRemainingFloorsPartialSeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := Remaining(start, 30, start.Add(999*time.Millisecond)); got != 30 {
		t.Fatalf("expected 30 before first full second, got %d", got)
	}
	if got := Remaining(start, 30, start.Add(1500*time.Millisecond)); got != 29 {
		t.Fatalf("expected 29 after 1.5s, got %d", got)
	}
}

func TestRemainingIsMonotonicAndNeverNegative(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prev := Remaining(start, 20, start)
	for ms := 0; ms <= 40000; ms += 137 {
		got := Remaining(start, 20, start.Add(time.Duration(ms)*time.Millisecond))
		if got < 0 {
			t.Fatalf("remaining went negative at %dms: %d", ms, got)
		}
		if got > prev {
			t.Fatalf("remaining increased at %dms: %d > %d", ms, got, prev)
		}
		prev = got
	}
	if prev != 0 {
		t.Fatalf("expected countdown to reach 0, got %d", prev)
	}
}

func TestRemainingToleratesViewerClockBehindStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := Remaining(start, 30, start.Add(-4*time.Second)); got != 30 {
		t.Fatalf("expected full duration for a lagging clock, got %d", got)
	}
}

func TestRemainingLateSnapshotConverges(t *testing.T) {
	// Two viewers receive the same snapshot at different times; both anchor on the
	// recorded start, so they agree whenever their clocks read the same instant.
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(12 * time.Second)
	early := Remaining(start, 30, now)
	late := Remaining(start, 30, now)
	if early != late || early != 18 {
		t.Fatalf("expected both viewers at 18, got %d and %d", early, late)
	}
}

func TestRemainingWithoutStartIsZero(t *testing.T) {
	if got := Remaining(time.Time{}, 30, time.Now()); got != 0 {
		t.Fatalf("expected 0 without a start time, got %d", got)
	}
}
