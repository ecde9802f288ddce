package attendance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"rollbook/internal/calendar"
)

const uniqueViolation = "23505"

// Repository persists the roster and attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Students returns the roster ordered by enrollment.
func (r *Repository) Students(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT enrollment, name FROM students ORDER BY enrollment`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.Enrollment, &s.Name); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Student returns one student by enrollment.
func (r *Repository) Student(ctx context.Context, enrollment string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT enrollment, name FROM students WHERE enrollment = $1`, enrollment)
	var s Student
	if err := row.Scan(&s.Enrollment, &s.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrStudentNotFound
		}
		return Student{}, err
	}
	return s, nil
}

// CreateStudent inserts a roster entry.
func (r *Repository) CreateStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (enrollment, name)
		VALUES ($1, $2)
	`, s.Enrollment, s.Name)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateStudent
	}
	return err
}

// PresentBetween returns Present records in [from, to].
func (r *Repository) PresentBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	return r.queryRecords(ctx, `
		SELECT a.enrollment, s.name, a.date, a.status
		FROM attendance a
		JOIN students s ON s.enrollment = a.enrollment
		WHERE a.date BETWEEN $1 AND $2 AND a.status = $3
		ORDER BY a.date, a.enrollment
	`, calendar.Day(from), calendar.Day(to), string(Present))
}

// RecordsOn returns every record of one date.
func (r *Repository) RecordsOn(ctx context.Context, date time.Time) ([]Record, error) {
	return r.queryRecords(ctx, `
		SELECT a.enrollment, s.name, a.date, a.status
		FROM attendance a
		JOIN students s ON s.enrollment = a.enrollment
		WHERE a.date = $1
		ORDER BY a.enrollment
	`, calendar.Day(date))
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.Enrollment, &rec.Name, &rec.Date, &status); err != nil {
			return nil, err
		}
		rec.Date = calendar.Day(rec.Date)
		rec.Status = Status(status)
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Mark inserts the record or flips the status of the existing one.
func (r *Repository) Mark(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, enrollment, date, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (enrollment, date) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
	`, uuid.NewString(), rec.Enrollment, calendar.Day(rec.Date), string(rec.Status))
	return err
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("postgres not configured")
	}
	return r.db.PingContext(ctx)
}
