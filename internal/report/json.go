package report

import (
	"io"

	"github.com/bytedance/sonic"

	"rollbook/internal/attendance"
	"rollbook/internal/calendar"
)

type jsonDay struct {
	Date   string            `json:"date"`
	Status attendance.Status `json:"status"`
}

type jsonStudent struct {
	Enrollment string    `json:"enrollment"`
	Name       string    `json:"name"`
	Days       []jsonDay `json:"days"`
	Present    int       `json:"present"`
	Absent     int       `json:"absent"`
	Percentage float64   `json:"percentage"`
}

type jsonReport struct {
	Month       string        `json:"month"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	WorkingDays int           `json:"workingDays"`
	Students    []jsonStudent `json:"students"`
}

// Rest days are left out of the per-day list; only working days count.
func toJSONReport(r *Report) jsonReport {
	out := jsonReport{
		Month:       r.Month.String(),
		From:        r.From.Format(calendar.DateLayout),
		To:          r.To.Format(calendar.DateLayout),
		WorkingDays: r.WorkingDays,
		Students:    make([]jsonStudent, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		st := jsonStudent{
			Enrollment: row.Enrollment,
			Name:       row.Name,
			Days:       make([]jsonDay, 0, r.WorkingDays),
			Present:    row.Present,
			Absent:     row.Absent,
			Percentage: row.Percentage,
		}
		for i, c := range row.Cells {
			if c == CellRest {
				continue
			}
			st.Days = append(st.Days, jsonDay{Date: r.Columns[i].Date.Format(calendar.DateLayout), Status: c.Status()})
		}
		out.Students = append(out.Students, st)
	}
	return out
}

func writeJSON(w io.Writer, r *Report) error {
	raw, err := sonic.ConfigStd.MarshalIndent(toJSONReport(r), "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	return err
}
