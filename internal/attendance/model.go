package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"rollbook/internal/calendar"
)

// Status is the recorded state of a student on a date.
type Status string

const (
	Present Status = "Present"
	Absent  Status = "Absent"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == Present || s == Absent
}

// StatusOf maps a present flag to its status.
func StatusOf(present bool) Status {
	if present {
		return Present
	}
	return Absent
}

// Student is an enrolled student.
type Student struct {
	Enrollment string `json:"enrollment" bson:"enrollment"`
	Name       string `json:"name" bson:"name"`
}

// Record is the attendance of one student on one civil date.
type Record struct {
	Enrollment string    `json:"enrollment"`
	Name       string    `json:"name"`
	Date       time.Time `json:"date"`
	Status     Status    `json:"status"`
}

var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrDuplicateStudent = errors.New("student already exists")
)

// StoreAccessError wraps a failed roster or record read/write.
type StoreAccessError struct {
	Op  string
	Err error
}

func (e *StoreAccessError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreAccessError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStudentNotFound) || errors.Is(err, ErrDuplicateStudent) {
		return err
	}
	return &StoreAccessError{Op: op, Err: err}
}

// Store holds the roster and the attendance records.
type Store interface {
	// Students returns the roster sorted by enrollment.
	Students(ctx context.Context) ([]Student, error)
	Student(ctx context.Context, enrollment string) (Student, error)
	CreateStudent(ctx context.Context, s Student) error
	// PresentBetween returns Present records with from <= date <= to.
	PresentBetween(ctx context.Context, from, to time.Time) ([]Record, error)
	RecordsOn(ctx context.Context, date time.Time) ([]Record, error)
	// Mark creates or updates the record keyed by (enrollment, date).
	Mark(ctx context.Context, rec Record) error
	Ping(ctx context.Context) error
}

// MarkEntry is one student's status in a mark request.
type MarkEntry struct {
	Enrollment string
	Present    bool
}

// MarkRequest marks a batch of students for one date.
type MarkRequest struct {
	Date    time.Time
	Entries []MarkEntry
}

// MarkResult reports what a mark request changed.
type MarkResult struct {
	Marked  int      `json:"marked"`
	Skipped []string `json:"skipped"`
}

// StudentSummary is one roster row of a monthly summary.
type StudentSummary struct {
	Enrollment string  `json:"enrollment"`
	Name       string  `json:"name"`
	Present    int     `json:"totalPresent"`
	Absent     int     `json:"totalAbsent"`
	Percentage float64 `json:"percentage"`
}

// MonthSummary is the per-student totals of a month up to its range end.
type MonthSummary struct {
	Month       string           `json:"month"`
	End         string           `json:"end"`
	WorkingDays int              `json:"totalWorkingDays"`
	Summary     []StudentSummary `json:"summary"`
}

// Sheet is a consistent-enough snapshot used to render a monthly report.
type Sheet struct {
	Range       calendar.Range
	WorkingDays []time.Time
	Roster      []Student
	Presence    Presence
	Summary     []StudentSummary
}

// DayStatus is one day of a student's month view. Status is empty on rest days.
type DayStatus struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// StudentMonth is one student's attendance over a month.
type StudentMonth struct {
	Enrollment  string      `json:"enrollment"`
	Name        string      `json:"name"`
	Month       string      `json:"month"`
	Records     []DayStatus `json:"records"`
	WorkingDays int         `json:"totalWorkingDays"`
	Present     int         `json:"totalPresent"`
	Absent      int         `json:"totalAbsent"`
}
