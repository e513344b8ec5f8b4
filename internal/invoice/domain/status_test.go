package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusDraft, StatusSent},
		{StatusDraft, StatusCancelled},
		{StatusDraft, StatusPaid},
		{StatusSent, StatusPaid},
		{StatusSent, StatusCancelled},
		{StatusPaid, StatusSent},
		{StatusPaid, StatusCancelled},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusSent, StatusDraft},
		{StatusPaid, StatusDraft},
		{StatusCancelled, StatusDraft},
		{StatusCancelled, StatusSent},
		{StatusCancelled, StatusPaid},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestNextStatusForBalance(t *testing.T) {
	if got := NextStatusForBalance(StatusSent, 0); got != StatusPaid {
		t.Fatalf("sent at zero balance = %s, want paid", got)
	}
	if got := NextStatusForBalance(StatusSent, -500); got != StatusPaid {
		t.Fatalf("sent overpaid = %s, want paid", got)
	}
	if got := NextStatusForBalance(StatusPaid, 3500); got != StatusSent {
		t.Fatalf("paid with balance = %s, want sent", got)
	}
	if got := NextStatusForBalance(StatusSent, 3500); got != StatusSent {
		t.Fatalf("sent with balance = %s, want sent", got)
	}
	if got := NextStatusForBalance(StatusCancelled, 0); got != StatusCancelled {
		t.Fatalf("cancelled at zero balance = %s, want cancelled", got)
	}
	if got := NextStatusForBalance(StatusCancelled, 3500); got != StatusCancelled {
		t.Fatalf("cancelled with balance = %s, want cancelled", got)
	}
}

func TestEffectiveStatusDerivesOverdue(t *testing.T) {
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	pastDue := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := EffectiveStatus(StatusSent, pastDue, 3500, now); got != StatusOverdue {
		t.Fatalf("sent past due with balance = %s, want overdue", got)
	}

	// Due today is not overdue; the day has to have passed.
	dueToday := time.Date(2025, 3, 15, 23, 0, 0, 0, time.UTC)
	if got := EffectiveStatus(StatusSent, dueToday, 3500, now); got != StatusSent {
		t.Fatalf("sent due today = %s, want sent", got)
	}

	if got := EffectiveStatus(StatusSent, pastDue, 0, now); got != StatusSent {
		t.Fatalf("sent past due fully paid = %s, want sent", got)
	}

	if got := EffectiveStatus(StatusDraft, pastDue, 3500, now); got != StatusDraft {
		t.Fatalf("draft past due = %s, want draft", got)
	}
	if got := EffectiveStatus(StatusCancelled, pastDue, 3500, now); got != StatusCancelled {
		t.Fatalf("cancelled past due = %s, want cancelled", got)
	}
	if got := EffectiveStatus(StatusPaid, pastDue, 0, now); got != StatusPaid {
		t.Fatalf("paid past due = %s, want paid", got)
	}
}
