package recurrence

import "time"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date, moving day past the month's end back to its last day.
func ClampedDate(year int, month time.Month, day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n months to t, clamping the day to the target month.
// Jan 31 + 1 month is Feb 28 (or 29), not Mar 3.
func AddMonths(t time.Time, n int) time.Time {
	idx := monthIndex(t) + n
	return ClampedDate(idx/12, time.Month(idx%12+1), t.Day())
}

// HorizonEnd is the last date, inclusive, of a horizon of n months from start.
func HorizonEnd(start time.Time, months int) time.Time {
	return AddMonths(Day(start), months)
}

// MonthsBetween counts calendar months from a to b, ignoring days.
func MonthsBetween(a, b time.Time) int {
	return monthIndex(b) - monthIndex(a)
}

// DaysBetween counts whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)) / (24 * time.Hour))
}

func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
