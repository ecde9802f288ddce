package report

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendance"

type xlsxStyles struct {
	header, present, absent, rest int
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.present, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "006100"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.absent, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
		Alignment: center,
	}); err != nil {
		return s, err
	}
	s.rest, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "808080", Italic: true},
		Alignment: center,
	})
	return s, err
}

func writeXLSX(w io.Writer, r *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	styles, err := newXLSXStyles(f)
	if err != nil {
		return errors.Wrap(err, "styles")
	}

	header := make([]interface{}, 0, len(r.Columns)+5)
	header = append(header, "Enrollment", "Name")
	for _, c := range r.Columns {
		header = append(header, c.Label())
	}
	header = append(header, "Present", "Absent", "Percentage")
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", styles.header); err != nil {
		return err
	}

	for i, row := range r.Rows {
		line := i + 2
		vals := make([]interface{}, 0, len(header))
		vals = append(vals, row.Enrollment, row.Name)
		for _, c := range row.Cells {
			vals = append(vals, c.Short())
		}
		vals = append(vals, row.Present, row.Absent, row.Percentage)

		start, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(sheetName, start, &vals); err != nil {
			return err
		}
		for j, c := range row.Cells {
			cell, _ := excelize.CoordinatesToCellName(j+3, line)
			style := styles.absent
			switch c {
			case CellPresent:
				style = styles.present
			case CellRest:
				style = styles.rest
			}
			if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 16); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 28); err != nil {
		return err
	}
	if len(r.Columns) > 0 {
		first, _ := excelize.ColumnNumberToName(3)
		last, _ := excelize.ColumnNumberToName(len(r.Columns) + 2)
		if err := f.SetColWidth(sheetName, first, last, 7); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}

	return f.Write(w)
}
