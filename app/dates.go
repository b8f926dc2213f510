package app

import "time"

// dayStartUTC truncates t to midnight of its UTC calendar day.
func dayStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// daysBack returns the UTC day i days before day.
func daysBack(day time.Time, i int) time.Time {
	return dayStartUTC(day).AddDate(0, 0, -i)
}
