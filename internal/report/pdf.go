package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
)

// A4 landscape geometry in millimetres.
const (
	pageW   = 297.0
	pageH   = 210.0
	margin  = 10.0
	enrollW = 26.0
	nameW   = 42.0
	dayW    = 8.0
	totalW  = 12.0
	pctW    = 16.0

	titleH  = 8.0
	periodH = 6.0
	headerH = 7.0
	rowH    = 6.0

	maxPages = 500
)

// pdfCompression is switched off in tests to read the content streams.
var pdfCompression = true

var (
	daysPerPage = int(math.Floor((pageW - 2*margin - enrollW - nameW - 2*totalW - pctW) / dayW))
	rowsPerPage = int(math.Floor((pageH - 2*margin - titleH - periodH - 2 - headerH) / rowH))
)

// page is one printed page: a chunk of day columns and a slice of rows.
type page struct {
	dayFrom, dayTo int
	rowFrom, rowTo int
}

// paginate splits the table into column chunks, each starting a new page and
// continuing onto further pages once the row budget is used up.
func paginate(days, rows, perPageDays, perPageRows int) ([]page, error) {
	if perPageDays <= 0 || perPageRows <= 0 {
		return nil, errors.New("page too small for the table")
	}
	var pages []page
	for d := 0; d < days; d += perPageDays {
		dEnd := min(d+perPageDays, days)
		if rows == 0 {
			pages = append(pages, page{dayFrom: d, dayTo: dEnd})
		}
		for r := 0; r < rows; r += perPageRows {
			pages = append(pages, page{dayFrom: d, dayTo: dEnd, rowFrom: r, rowTo: min(r+perPageRows, rows)})
			if len(pages) > maxPages {
				return nil, errors.Errorf("report needs more than %d pages", maxPages)
			}
		}
	}
	return pages, nil
}

func writePDF(w io.Writer, r *Report) error {
	pages, err := paginate(len(r.Columns), len(r.Rows), daysPerPage, rowsPerPage)
	if err != nil {
		return err
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.SetCompression(pdfCompression)
	pdf.SetTitle(r.Title(), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for n, pg := range pages {
		pdf.AddPage()
		drawPageHeader(pdf, tr, r, pg, n+1, len(pages))
		for i := pg.rowFrom; i < pg.rowTo; i++ {
			drawRow(pdf, tr, r.Rows[i], pg)
		}
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func drawPageHeader(pdf *fpdf.Fpdf, tr func(string) string, r *Report, pg page, num, total int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, titleH, tr(r.Title()), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	info := fmt.Sprintf("%s  |  working days: %d  |  dates %s to %s  |  page %d of %d",
		r.Period(), r.WorkingDays,
		r.Columns[pg.dayFrom].Label(), r.Columns[pg.dayTo-1].Label(), num, total)
	pdf.CellFormat(0, periodH, tr(info), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	cols := headerText(r, pg)
	last := len(cols) - 1
	pdf.SetFillColor(217, 225, 242)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(enrollW, headerH, cols[0], "1", 0, "C", true, 0, "")
	pdf.CellFormat(nameW, headerH, cols[1], "1", 0, "C", true, 0, "")
	pdf.SetFont("Helvetica", "B", 6)
	for _, label := range cols[2 : last-2] {
		pdf.CellFormat(dayW, headerH, label, "1", 0, "C", true, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(totalW, headerH, cols[last-2], "1", 0, "C", true, 0, "")
	pdf.CellFormat(totalW, headerH, cols[last-1], "1", 0, "C", true, 0, "")
	pdf.CellFormat(pctW, headerH, cols[last], "1", 1, "C", true, 0, "")
}

func drawRow(pdf *fpdf.Fpdf, tr func(string) string, row Row, pg page) {
	text := rowText(row, pg)
	last := len(text) - 1
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(enrollW, rowH, fit(pdf, tr(text[0]), enrollW), "1", 0, "L", false, 0, "")
	pdf.CellFormat(nameW, rowH, fit(pdf, tr(text[1]), nameW), "1", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for i, c := range row.Cells[pg.dayFrom:pg.dayTo] {
		fill := true
		switch c {
		case CellPresent:
			pdf.SetFillColor(198, 239, 206)
			pdf.SetTextColor(0, 97, 0)
		case CellAbsent:
			pdf.SetFillColor(255, 199, 206)
			pdf.SetTextColor(156, 0, 6)
		default:
			fill = false
			pdf.SetTextColor(128, 128, 128)
		}
		pdf.CellFormat(dayW, rowH, text[2+i], "1", 0, "C", fill, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(totalW, rowH, text[last-2], "1", 0, "C", false, 0, "")
	pdf.CellFormat(totalW, rowH, text[last-1], "1", 0, "C", false, 0, "")
	pdf.CellFormat(pctW, rowH, text[last], "1", 1, "C", false, 0, "")
}

// headerText is the column header line of one page.
func headerText(r *Report, pg page) []string {
	out := make([]string, 0, pg.dayTo-pg.dayFrom+5)
	out = append(out, "Enrollment", "Name")
	for _, c := range r.Columns[pg.dayFrom:pg.dayTo] {
		out = append(out, c.Label())
	}
	return append(out, "P", "A", "%")
}

// rowText is the text of one row on one page, before truncation to the
// cell width.
func rowText(row Row, pg page) []string {
	out := make([]string, 0, pg.dayTo-pg.dayFrom+5)
	out = append(out, row.Enrollment, row.Name)
	for _, c := range row.Cells[pg.dayFrom:pg.dayTo] {
		out = append(out, c.Short())
	}
	return append(out, strconv.Itoa(row.Present), strconv.Itoa(row.Absent), formatPercent(row.Percentage))
}

// fit trims s until it fits in a cell of width w.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	const pad = 2.0
	if pdf.GetStringWidth(s) <= w-pad {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"..") > w-pad {
		b = b[:len(b)-1]
	}
	return string(b) + ".."
}
