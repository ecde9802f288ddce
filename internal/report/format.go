package report

import (
	"fmt"
	"strings"

	"rollbook/internal/calendar"
)

// Format selects an output encoding.
type Format string

const (
	Spreadsheet Format = "xlsx"
	Print       Format = "pdf"
	Delimited   Format = "csv"
	Structured  Format = "json"
)

var formatAliases = map[string]Format{
	"xlsx":            Spreadsheet,
	"excel":           Spreadsheet,
	"spreadsheet":     Spreadsheet,
	"pdf":             Print,
	"print":           Print,
	"csv":             Delimited,
	"delimited-text":  Delimited,
	"json":            Structured,
	"structured-data": Structured,
}

// UnsupportedFormatError reports an unknown format selector.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Format)
}

// ExportError wraps a failure while producing a report.
type ExportError struct {
	Month  string
	Format Format
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s as %s: %v", e.Month, e.Format, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ParseFormat resolves a format selector. An empty selector means spreadsheet.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return Spreadsheet, nil
	}
	f, ok := formatAliases[key]
	if !ok {
		return "", &UnsupportedFormatError{Format: s}
	}
	return f, nil
}

// ContentType is the media type of the encoding.
func (f Format) ContentType() string {
	switch f {
	case Spreadsheet:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case Print:
		return "application/pdf"
	case Delimited:
		return "text/csv; charset=utf-8"
	case Structured:
		return "application/json; charset=utf-8"
	}
	return "application/octet-stream"
}

// Ext is the file extension of the encoding.
func (f Format) Ext() string {
	return string(f)
}

// Filename suggests the download name, Attendance-<YYYY-MM>.<ext>.
func Filename(m calendar.Month, f Format) string {
	return "Attendance-" + m.String() + "." + f.Ext()
}
