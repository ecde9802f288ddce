package report

import (
	"bytes"
	"io"
)

// Render encodes the report in the given format.
func Render(w io.Writer, f Format, r *Report) error {
	var err error
	switch f {
	case Spreadsheet:
		err = writeXLSX(w, r)
	case Print:
		err = writePDF(w, r)
	case Delimited:
		err = writeCSV(w, r)
	case Structured:
		err = writeJSON(w, r)
	default:
		return &UnsupportedFormatError{Format: string(f)}
	}
	if err != nil {
		return &ExportError{Month: r.Month.String(), Format: f, Err: err}
	}
	return nil
}

// RenderBytes renders into memory so nothing reaches the client on failure.
func RenderBytes(f Format, r *Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, f, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
