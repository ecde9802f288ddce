package calendar

import (
	"iter"
	"time"
)

// RestDay is the weekly rest day excluded from working days.
const RestDay = time.Sunday

// IsRestDay reports whether the civil date is the weekly rest day.
func IsRestDay(date time.Time) bool {
	return date.Weekday() == RestDay
}

// Dates yields every civil date from from to to inclusive. Each iteration
// derives its values from the bounds, so the sequence can be ranged over again.
func Dates(from, to time.Time) iter.Seq[time.Time] {
	from, to = Day(from), Day(to)
	return func(yield func(time.Time) bool) {
		for i := 0; ; i++ {
			d := from.AddDate(0, 0, i)
			if d.After(to) {
				return
			}
			if !yield(d) {
				return
			}
		}
	}
}

// Range is the span of a month that counts for attendance.
type Range struct {
	Month Month
	Start time.Time
	End   time.Time
}

// WorkingDays computes the counted span of a month. When asOf falls inside
// the month the span ends at asOf, otherwise it covers the whole month.
func WorkingDays(m Month, asOf *time.Time) Range {
	r := Range{Month: m, Start: m.First(), End: m.Last()}
	if asOf != nil {
		if d := Day(*asOf); m.Contains(d) {
			r.End = d
		}
	}
	return r
}

// Dates yields every date of the range.
func (r Range) Dates() iter.Seq[time.Time] {
	return Dates(r.Start, r.End)
}

// Days returns every date of the range in order.
func (r Range) Days() []time.Time {
	var out []time.Time
	for d := range r.Dates() {
		out = append(out, d)
	}
	return out
}

// WorkingDays returns the dates of the range that are not rest days.
func (r Range) WorkingDays() []time.Time {
	var out []time.Time
	for d := range r.Dates() {
		if !IsRestDay(d) {
			out = append(out, d)
		}
	}
	return out
}
