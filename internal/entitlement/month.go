package entitlement

import "time"

// MonthWindow returns the UTC calendar month containing t as a half-open range [start, end).
func MonthWindow(t time.Time) (time.Time, time.Time) {
	utc := t.UTC()
	start := time.Date(utc.Year(), utc.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
