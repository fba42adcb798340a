// Package recurrence expands recurring cash definitions into dated events.
package recurrence

import (
	"sort"
	"time"

	"github.com/Dan9191/payoff-planner/internal/apperrors"
)

// Expand returns every occurrence of def dated within [start, HorizonEnd(start, horizonMonths)],
// in ascending order.
func Expand(def Definition, start time.Time, horizonMonths int) ([]Event, error) {
	if horizonMonths < 0 {
		return nil, apperrors.Invalid("horizon_months", "must not be negative, got %d", horizonMonths)
	}
	if start.IsZero() {
		return nil, apperrors.Invalid("start", "start date is required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	start = Day(start)
	return ExpandRange(def, start, HorizonEnd(start, horizonMonths)), nil
}

// ExpandRange expands an already validated definition over [start, end].
func ExpandRange(def Definition, start, end time.Time) []Event {
	start, end = Day(start), Day(end)
	var dates []time.Time
	switch def.Cadence {
	case Weekly:
		dates = everyDays(def, start, end, 7)
	case Biweekly:
		dates = everyDays(def, start, end, 14)
	case Monthly:
		dates = monthly(def, start, end)
	case Yearly:
		dates = yearly(def, start, end)
	case Once:
		if d := Day(def.Anchor); inRange(d, start, end) {
			dates = []time.Time{d}
		}
	}

	events := make([]Event, 0, len(dates))
	for _, d := range dates {
		events = append(events, def.event(d))
	}
	return events
}

// ExpandAll expands every definition and merges the result in event order.
func ExpandAll(defs []Definition, start time.Time, horizonMonths int) ([]Event, error) {
	var all []Event
	for _, def := range defs {
		events, err := Expand(def, start, horizonMonths)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	SortEvents(all)
	return all, nil
}

// SortEvents orders events by date, kind precedence, then id.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if pa, pb := a.Kind.Precedence(), b.Kind.Precedence(); pa != pb {
			return pa < pb
		}
		return a.ID < b.ID
	})
}

func everyDays(def Definition, start, end time.Time, step int) []time.Time {
	first := start
	switch {
	case !def.Anchor.IsZero():
		first = Day(def.Anchor)
		if first.Before(start) {
			behind := DaysBetween(first, start)
			first = first.AddDate(0, 0, (behind+step-1)/step*step)
		}
	case def.Weekday != nil:
		offset := (int(*def.Weekday) - int(start.Weekday()) + 7) % 7
		first = start.AddDate(0, 0, offset)
	}

	var dates []time.Time
	for d := first; !d.After(end); d = d.AddDate(0, 0, step) {
		dates = append(dates, d)
	}
	return dates
}

func monthly(def Definition, start, end time.Time) []time.Time {
	interval := def.Interval
	if interval < 1 {
		interval = 1
	}
	day := def.DayOfMonth
	cursor := monthIndex(start)
	var anchor time.Time
	if !def.Anchor.IsZero() {
		anchor = Day(def.Anchor)
		if day == 0 {
			day = anchor.Day()
		}
		cursor = monthIndex(anchor)
		for cursor < monthIndex(start) {
			cursor += interval
		}
	}
	if day == 0 {
		day = start.Day()
	}

	var dates []time.Time
	for ; cursor <= monthIndex(end); cursor += interval {
		d := ClampedDate(cursor/12, time.Month(cursor%12+1), day)
		if !anchor.IsZero() && d.Before(anchor) {
			continue
		}
		if inRange(d, start, end) {
			dates = append(dates, d)
		}
	}
	return dates
}

func yearly(def Definition, start, end time.Time) []time.Time {
	anchor := start
	if !def.Anchor.IsZero() {
		anchor = Day(def.Anchor)
	}
	year := anchor.Year()
	for ClampedDate(year, anchor.Month(), anchor.Day()).Before(start) {
		year++
	}

	var dates []time.Time
	for d := ClampedDate(year, anchor.Month(), anchor.Day()); !d.After(end); d = ClampedDate(year, anchor.Month(), anchor.Day()) {
		dates = append(dates, d)
		year++
	}
	return dates
}
