package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rollbook/internal/calendar"
)

func day(s string) time.Time {
	d, err := calendar.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func present(enrollment, date string) Record {
	return Record{Enrollment: enrollment, Date: day(date), Status: Present}
}

func TestComputeMonthlySummaryScenario(t *testing.T) {
	today := day("2025-04-02")
	r := calendar.WorkingDays(calendar.Month{Year: 2025, Month: time.April}, &today)
	roster := []Student{{"E1", "Alice"}, {"E2", "Bob"}}
	records := []Record{
		present("E1", "2025-04-01"),
		present("E1", "2025-04-02"),
		present("E2", "2025-04-02"),
	}

	got := ComputeMonthlySummary(r.WorkingDays(), records, roster)

	assert.Equal(t, []StudentSummary{
		{Enrollment: "E1", Name: "Alice", Present: 2, Absent: 0, Percentage: 100},
		{Enrollment: "E2", Name: "Bob", Present: 1, Absent: 1, Percentage: 50},
	}, got)
}

func TestComputeMonthlySummaryIgnoresRestDaysAndOutOfRange(t *testing.T) {
	r := calendar.WorkingDays(calendar.Month{Year: 2025, Month: time.April}, nil)
	roster := []Student{{"E1", "Alice"}}
	records := []Record{
		present("E1", "2025-04-06"), // Sunday
		present("E1", "2025-03-31"), // previous month
		present("E1", "2025-04-07"),
		present("E1", "2025-04-07"), // duplicate delivered twice
		{Enrollment: "E1", Date: day("2025-04-08"), Status: Absent},
	}

	got := ComputeMonthlySummary(r.WorkingDays(), records, roster)

	assert.Equal(t, 1, got[0].Present)
	assert.Equal(t, 25, got[0].Absent)
}

func TestComputeMonthlySummaryTotalsAlwaysBalance(t *testing.T) {
	months := []calendar.Month{
		{Year: 2024, Month: time.February},
		{Year: 2025, Month: time.April},
		{Year: 2025, Month: time.June},
		{Year: 2025, Month: time.December},
	}
	roster := []Student{{"E1", "Alice"}, {"E2", "Bob"}, {"E3", "Cara"}}

	for _, m := range months {
		t.Run(m.String(), func(t *testing.T) {
			r := calendar.WorkingDays(m, nil)
			var records []Record
			for i, d := range r.Days() {
				if i%2 == 0 {
					records = append(records, Record{Enrollment: "E1", Date: d, Status: Present})
				}
				if i%3 == 0 {
					records = append(records, Record{Enrollment: "E2", Date: d, Status: Present})
				}
			}
			working := len(r.WorkingDays())
			for _, s := range ComputeMonthlySummary(r.WorkingDays(), records, roster) {
				assert.Equal(t, working, s.Present+s.Absent, s.Enrollment)
				assert.GreaterOrEqual(t, s.Present, 0)
				assert.GreaterOrEqual(t, s.Absent, 0)
			}
		})
	}
}

func TestComputeMonthlySummaryNoRecords(t *testing.T) {
	r := calendar.WorkingDays(calendar.Month{Year: 2025, Month: time.April}, nil)
	got := ComputeMonthlySummary(r.WorkingDays(), nil, []Student{{"E9", "Zed"}})
	assert.Equal(t, 0, got[0].Present)
	assert.Equal(t, len(r.WorkingDays()), got[0].Absent)
	assert.Zero(t, got[0].Percentage)
}

func TestComputeMonthlySummaryNoWorkingDays(t *testing.T) {
	got := ComputeMonthlySummary(nil, []Record{present("E1", "2025-06-01")}, []Student{{"E1", "Alice"}})
	assert.Equal(t, StudentSummary{Enrollment: "E1", Name: "Alice"}, got[0])
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 100.0, Percentage(26, 26))
	assert.Equal(t, 0.0, Percentage(0, 0))
}
