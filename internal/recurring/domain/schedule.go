package domain

import "time"

// Due reports whether the schedule should produce an invoice at now.
func Due(s Schedule, now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.NextDate.After(now) {
		return false
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return false
	}
	return true
}

// Advance moves a scheduled date forward by interval units of frequency.
func Advance(next time.Time, freq Frequency, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch freq {
	case FrequencyWeekly:
		return next.AddDate(0, 0, 7*interval)
	case FrequencyMonthly:
		return next.AddDate(0, interval, 0)
	case FrequencyQuarterly:
		return next.AddDate(0, 3*interval, 0)
	case FrequencyYearly:
		return next.AddDate(interval, 0, 0)
	}
	return next.AddDate(0, interval, 0)
}

// CatchUp advances from the last scheduled date until the result is
// strictly in the future. Advancing from the scheduled date rather
// than from now keeps the cadence anchored; a run after downtime
// produces one catch-up invoice, not one per missed interval.
func CatchUp(next time.Time, freq Frequency, interval int, now time.Time) time.Time {
	for !next.After(now) {
		next = Advance(next, freq, interval)
	}
	return next
}
