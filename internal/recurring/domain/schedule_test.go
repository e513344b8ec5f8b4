package domain

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDue(t *testing.T) {
	now := date(2025, 6, 15)
	end := date(2025, 6, 1)

	cases := []struct {
		name     string
		schedule Schedule
		want     bool
	}{
		{"due today", Schedule{Active: true, NextDate: now}, true},
		{"past due", Schedule{Active: true, NextDate: date(2025, 6, 1)}, true},
		{"future", Schedule{Active: true, NextDate: date(2025, 7, 1)}, false},
		{"inactive", Schedule{Active: false, NextDate: now}, false},
		{"past end date", Schedule{Active: true, NextDate: now, EndDate: &end}, false},
	}

	for _, tc := range cases {
		if got := Due(tc.schedule, now); got != tc.want {
			t.Fatalf("%s: Due = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAdvance(t *testing.T) {
	start := date(2025, 1, 31)

	cases := []struct {
		freq     Frequency
		interval int
		want     time.Time
	}{
		{FrequencyWeekly, 1, date(2025, 2, 7)},
		{FrequencyWeekly, 2, date(2025, 2, 14)},
		{FrequencyMonthly, 1, date(2025, 3, 3)}, // Jan 31 + 1 month normalizes past Feb
		{FrequencyQuarterly, 1, date(2025, 5, 1)},
		{FrequencyYearly, 1, date(2026, 1, 31)},
		{FrequencyMonthly, 0, date(2025, 3, 3)}, // interval below 1 is treated as 1
	}

	for _, tc := range cases {
		if got := Advance(start, tc.freq, tc.interval); !got.Equal(tc.want) {
			t.Fatalf("Advance(%s, %d) = %s, want %s", tc.freq, tc.interval, got, tc.want)
		}
	}
}

func TestCatchUpAnchorsToSchedule(t *testing.T) {
	// Three missed monthly periods: the next date lands on the original
	// cadence, one step past now, not three steps from now.
	next := date(2025, 1, 1)
	now := date(2025, 4, 10)

	got := CatchUp(next, FrequencyMonthly, 1, now)
	if want := date(2025, 5, 1); !got.Equal(want) {
		t.Fatalf("CatchUp = %s, want %s", got, want)
	}
}

func TestCatchUpAlreadyFuture(t *testing.T) {
	next := date(2025, 7, 1)
	now := date(2025, 6, 15)

	if got := CatchUp(next, FrequencyMonthly, 1, now); !got.Equal(next) {
		t.Fatalf("CatchUp moved a future date: %s", got)
	}
}

func TestValidFrequency(t *testing.T) {
	for _, freq := range []string{"weekly", "monthly", "quarterly", "yearly"} {
		if !ValidFrequency(Frequency(freq)) {
			t.Fatalf("expected %s to be valid", freq)
		}
	}
	if ValidFrequency("daily") {
		t.Fatal("expected daily to be invalid")
	}
}
