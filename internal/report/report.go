// Package report turns a month of attendance into downloadable documents.
package report

import (
	"fmt"
	"time"

	"rollbook/internal/attendance"
	"rollbook/internal/calendar"
)

// Cell is the state of one student on one date.
type Cell int

const (
	CellAbsent Cell = iota
	CellPresent
	CellRest
)

// Short is the compact label used in table cells.
func (c Cell) Short() string {
	switch c {
	case CellPresent:
		return "P"
	case CellRest:
		return "Sun"
	}
	return "A"
}

// Status is the attendance status of a working-day cell.
func (c Cell) Status() attendance.Status {
	if c == CellPresent {
		return attendance.Present
	}
	return attendance.Absent
}

// Column is one date of the report.
type Column struct {
	Date time.Time
	Rest bool
}

// Label renders the column header as DD-MM.
func (c Column) Label() string {
	return c.Date.Format("02-01")
}

// Row is one student's line of the report.
type Row struct {
	Enrollment string
	Name       string
	Cells      []Cell
	Present    int
	Absent     int
	Percentage float64
}

// Report is the encoding-independent monthly table.
type Report struct {
	Institution string
	Month       calendar.Month
	From, To    time.Time
	WorkingDays int
	Columns     []Column
	Rows        []Row
}

// Build lays out a sheet as a report table with one column per date in range.
func Build(sheet *attendance.Sheet, institution string) *Report {
	r := &Report{
		Institution: institution,
		Month:       sheet.Range.Month,
		From:        sheet.Range.Start,
		To:          sheet.Range.End,
		WorkingDays: len(sheet.WorkingDays),
	}
	for d := range sheet.Range.Dates() {
		r.Columns = append(r.Columns, Column{Date: d, Rest: calendar.IsRestDay(d)})
	}

	totals := make(map[string]attendance.StudentSummary, len(sheet.Summary))
	for _, s := range sheet.Summary {
		totals[s.Enrollment] = s
	}

	r.Rows = make([]Row, 0, len(sheet.Roster))
	for _, st := range sheet.Roster {
		row := Row{Enrollment: st.Enrollment, Name: st.Name, Cells: make([]Cell, len(r.Columns))}
		for i, col := range r.Columns {
			switch {
			case col.Rest:
				row.Cells[i] = CellRest
			case sheet.Presence.Has(st.Enrollment, col.Date):
				row.Cells[i] = CellPresent
			default:
				row.Cells[i] = CellAbsent
			}
		}
		t := totals[st.Enrollment]
		row.Present, row.Absent, row.Percentage = t.Present, t.Absent, t.Percentage
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Title is the heading printed on documents.
func (r *Report) Title() string {
	if r.Institution == "" {
		return "Attendance Report"
	}
	return r.Institution + " - Attendance Report"
}

// Period describes the covered span, e.g. "April 2025 (01-04 to 12-04)".
func (r *Report) Period() string {
	return fmt.Sprintf("%s %d (%s to %s)", r.Month.Month, r.Month.Year, r.From.Format("02-01"), r.To.Format("02-01"))
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f", p)
}
