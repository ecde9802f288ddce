package attendance

import (
	"math"
	"time"

	"rollbook/internal/calendar"
)

// Presence is a lookup of (enrollment, date) pairs marked Present.
type Presence map[string]map[time.Time]struct{}

// NewPresence indexes present records by student and civil date.
func NewPresence(records []Record) Presence {
	p := make(Presence)
	for _, r := range records {
		if r.Status != "" && r.Status != Present {
			continue
		}
		days, ok := p[r.Enrollment]
		if !ok {
			days = make(map[time.Time]struct{})
			p[r.Enrollment] = days
		}
		days[calendar.Day(r.Date)] = struct{}{}
	}
	return p
}

// Has reports whether the student was present on the date.
func (p Presence) Has(enrollment string, date time.Time) bool {
	_, ok := p[enrollment][calendar.Day(date)]
	return ok
}

// ComputeMonthlySummary counts, for each roster student, the present dates
// that fall on the given working days. Absence is the complement over the
// working days. Output follows roster order.
func ComputeMonthlySummary(workingDays []time.Time, present []Record, roster []Student) []StudentSummary {
	presence := NewPresence(present)
	total := len(workingDays)

	out := make([]StudentSummary, 0, len(roster))
	for _, s := range roster {
		n := 0
		for _, d := range workingDays {
			if presence.Has(s.Enrollment, d) {
				n++
			}
		}
		out = append(out, StudentSummary{
			Enrollment: s.Enrollment,
			Name:       s.Name,
			Present:    n,
			Absent:     total - n,
			Percentage: Percentage(n, total),
		})
	}
	return out
}

// Percentage returns present/total as a percentage rounded to two decimals.
func Percentage(present, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}
