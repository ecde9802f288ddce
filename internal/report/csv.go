package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

func writeCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(r.Columns)+5)
	header = append(header, "Enrollment", "Name")
	for _, c := range r.Columns {
		header = append(header, c.Label())
	}
	header = append(header, "Present", "Absent", "Percentage")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range r.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, row.Enrollment, row.Name)
		for _, c := range row.Cells {
			rec = append(rec, c.Short())
		}
		rec = append(rec, strconv.Itoa(row.Present), strconv.Itoa(row.Absent), formatPercent(row.Percentage))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
