package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the wire form of a month identifier.
const Layout = "2006-01"

// DateLayout is the wire form of a civil date.
const DateLayout = "2006-01-02"

// InvalidMonthError reports a month identifier that could not be parsed or is out of range.
type InvalidMonthError struct {
	Input  string
	Reason string
}

func (e *InvalidMonthError) Error() string {
	return fmt.Sprintf("invalid month %q: %s", e.Input, e.Reason)
}

// Month identifies a reporting period.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM identifier.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 || !digits(parts[0]) || !digits(parts[1]) {
		return Month{}, &InvalidMonthError{Input: s, Reason: "expected YYYY-MM"}
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, &InvalidMonthError{Input: s, Reason: "year is not a number"}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Month{}, &InvalidMonthError{Input: s, Reason: "month is not a number"}
	}
	m, err := NewMonth(year, month)
	if err != nil {
		err.(*InvalidMonthError).Input = s
		return Month{}, err
	}
	return m, nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NewMonth validates a numeric year and month.
func NewMonth(year, month int) (Month, error) {
	in := fmt.Sprintf("%04d-%02d", year, month)
	if year < 1 || year > 9999 {
		return Month{}, &InvalidMonthError{Input: in, Reason: "year out of range"}
	}
	if month < 1 || month > 12 {
		return Month{}, &InvalidMonthError{Input: in, Reason: "month must be between 01 and 12"}
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// MonthOf returns the month a civil date belongs to.
func MonthOf(date time.Time) Month {
	return Month{Year: date.Year(), Month: date.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first civil date of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last civil date of the month.
func (m Month) Last() time.Time {
	return m.First().AddDate(0, 1, -1)
}

// Contains reports whether the civil date falls inside the month.
func (m Month) Contains(date time.Time) bool {
	return date.Year() == m.Year && date.Month() == m.Month
}

// Day truncates t to its civil date, evaluated in t's own location.
func Day(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD civil date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}
