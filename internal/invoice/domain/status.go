package domain

import "time"

// CanTransition reports whether an explicit status change is allowed.
// Cancelled is terminal. The paid to sent edge exists because removing
// a payment can reopen a settled invoice.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSent || to == StatusCancelled || to == StatusPaid
	case StatusSent:
		return to == StatusPaid || to == StatusCancelled
	case StatusPaid:
		return to == StatusSent || to == StatusCancelled
	default:
		return false
	}
}

// NextStatusForBalance resolves the stored status after a money change.
// Cancelled invoices keep their totals current but never change status.
// Draft invoices settle to paid only when fully covered.
func NextStatusForBalance(current Status, balanceDue int64) Status {
	if current == StatusCancelled {
		return current
	}
	if balanceDue <= 0 {
		return StatusPaid
	}
	if current == StatusPaid {
		return StatusSent
	}
	return current
}

// EffectiveStatus resolves the status presented to readers. A sent
// invoice with an outstanding balance past its due date reads as
// overdue without any stored state changing.
func EffectiveStatus(stored Status, dueDate time.Time, balanceDue int64, now time.Time) Status {
	if stored != StatusSent {
		return stored
	}
	if balanceDue <= 0 {
		return stored
	}
	if truncateToDay(dueDate).Before(truncateToDay(now)) {
		return StatusOverdue
	}
	return stored
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
