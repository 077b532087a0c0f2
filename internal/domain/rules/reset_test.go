package rules

import (
	"testing"
	"time"
)

func TestOutlookThreeDaysBeforeReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	resetAt := now.Add(3 * 24 * time.Hour)

	outlook := Outlook(resetAt, now, 40)

	if outlook.DaysUntilReset != 3 {
		t.Fatalf("unexpected days until reset: got %d want 3", outlook.DaysUntilReset)
	}
	if !outlook.IsResetSoon {
		t.Fatalf("reset in 3 days must be soon")
	}
	if outlook.CreditsWillExpire != 40 {
		t.Fatalf("unexpected expiring credits: got %d want 40", outlook.CreditsWillExpire)
	}
}

func TestOutlookFarFromReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	resetAt := now.Add(20 * 24 * time.Hour)

	outlook := Outlook(resetAt, now, 77)

	if outlook.IsResetSoon {
		t.Fatalf("reset in 20 days must not be soon")
	}
	if outlook.CreditsWillExpire != 0 {
		t.Fatalf("no expiry warning expected, got %d", outlook.CreditsWillExpire)
	}
}

func TestDaysUntilResetRoundsPartialDaysUp(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	resetAt := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)

	if got := DaysUntilReset(resetAt, now); got != 1 {
		t.Fatalf("unexpected days until reset: got %d want 1", got)
	}
}

func TestDaysUntilResetPastBoundaryIsZero(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	resetAt := now.Add(-time.Hour)

	if got := DaysUntilReset(resetAt, now); got != 0 {
		t.Fatalf("unexpected days until reset: got %d want 0", got)
	}
}

func TestNextCycleResetAtAdvancesOneMonth(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	next := NextCycleResetAt(now)

	want := time.Date(2026, 2, 15, 9, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("unexpected next reset: got %s want %s", next, want)
	}
}

func TestNextCycleResetFromKeepsAnchorAcrossLateSweeps(t *testing.T) {
	anchor := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// A few days late still lands on the 15th.
	next := NextCycleResetFrom(anchor, time.Date(2026, 1, 18, 6, 0, 0, 0, time.UTC))
	if want := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("unexpected next reset: got %s want %s", next, want)
	}

	// Months late skips whole cycles until the boundary is ahead.
	next = NextCycleResetFrom(anchor, time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC))
	if want := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC); !next.Equal(want) {
		t.Fatalf("unexpected next reset: got %s want %s", next, want)
	}
}

func TestNextCycleResetFromZeroAnchorStartsFreshCycle(t *testing.T) {
	now := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	next := NextCycleResetFrom(time.Time{}, now)
	if want := NextCycleResetAt(now); !next.Equal(want) {
		t.Fatalf("unexpected next reset: got %s want %s", next, want)
	}
}
