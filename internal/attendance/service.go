package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"rollbook/internal/calendar"
	"rollbook/internal/metrics"
	"rollbook/internal/queue"
)

var (
	ErrInvalidStudent = errors.New("enrollment and name are required")
	ErrMissingDate    = errors.New("date is required")
)

// Service coordinates marking, summaries and report snapshots.
type Service struct {
	store  Store
	cache  SummaryCache
	events queue.Publisher
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache serves month summaries through c.
func WithCache(c SummaryCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEvents publishes mark events to p.
func WithEvents(p queue.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock sets the source of "now". Its location decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l.With().Str("component", "attendance").Logger() }
}

// NewService creates a service backed by a store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current civil date.
func (s *Service) Today() time.Time {
	return calendar.Day(s.now())
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Students returns the roster.
func (s *Service) Students(ctx context.Context) ([]Student, error) {
	roster, err := s.store.Students(ctx)
	if err != nil {
		return nil, storeErr("students", err)
	}
	if roster == nil {
		roster = []Student{}
	}
	return roster, nil
}

// CreateStudent adds a student to the roster.
func (s *Service) CreateStudent(ctx context.Context, st Student) (Student, error) {
	st.Enrollment = strings.TrimSpace(st.Enrollment)
	st.Name = strings.TrimSpace(st.Name)
	if st.Enrollment == "" || st.Name == "" {
		return Student{}, ErrInvalidStudent
	}
	if err := s.store.CreateStudent(ctx, st); err != nil {
		return Student{}, storeErr("create student", err)
	}
	// every month's summary lists the whole roster
	if s.cache != nil {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			s.log.Warn().Err(err).Str("enrollment", st.Enrollment).Msg("summary cache invalidation failed")
		}
	}
	return st, nil
}

// Mark records the status of each listed student on one date. Unknown
// enrollments are skipped. Re-marking a date updates the existing record.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (MarkResult, error) {
	if req.Date.IsZero() {
		return MarkResult{}, ErrMissingDate
	}
	date := calendar.Day(req.Date)
	res, err := s.markEntries(ctx, date, req.Entries)
	// records written before a failure still change the month
	if res.Marked > 0 {
		s.publishMarked(ctx, date)
	}
	return res, err
}

func (s *Service) markEntries(ctx context.Context, date time.Time, entries []MarkEntry) (MarkResult, error) {
	res := MarkResult{Skipped: []string{}}
	for _, e := range entries {
		enrollment := strings.TrimSpace(e.Enrollment)
		st, err := s.store.Student(ctx, enrollment)
		if errors.Is(err, ErrStudentNotFound) {
			res.Skipped = append(res.Skipped, e.Enrollment)
			continue
		}
		if err != nil {
			return res, storeErr("find student", err)
		}
		status := StatusOf(e.Present)
		rec := Record{Enrollment: st.Enrollment, Name: st.Name, Date: date, Status: status}
		if err := s.store.Mark(ctx, rec); err != nil {
			return res, storeErr("mark", err)
		}
		metrics.RecordsMarked.WithLabelValues(string(status)).Inc()
		res.Marked++
	}
	return res, nil
}

func (s *Service) publishMarked(ctx context.Context, date time.Time) {
	if s.events == nil {
		return
	}
	evt := queue.Event{
		Type:  queue.TypeMarked,
		Month: calendar.MonthOf(date).String(),
		Date:  date.Format(calendar.DateLayout),
		At:    s.now().UTC(),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("date", evt.Date).Msg("publish mark event failed")
	}
}

// Day returns every record of one date.
func (s *Service) Day(ctx context.Context, date time.Time) ([]Record, error) {
	recs, err := s.store.RecordsOn(ctx, calendar.Day(date))
	if err != nil {
		return nil, storeErr("records on", err)
	}
	return recs, nil
}

// MonthSummary returns per-student totals for the month, counted up to today
// when the month is the current one.
func (s *Service) MonthSummary(ctx context.Context, month calendar.Month) (MonthSummary, error) {
	today := s.Today()
	r := calendar.WorkingDays(month, &today)

	// The version is read before the store so that a mark landing while we
	// compute leaves this result under a stale version.
	var version string
	cacheable := false
	if s.cache != nil {
		v, err := s.cache.Version(ctx, month)
		if err != nil {
			metrics.SummaryCache.WithLabelValues("error").Inc()
			s.log.Warn().Err(err).Str("month", month.String()).Msg("summary cache version read failed")
		} else {
			version, cacheable = v, true
		}
	}

	if cacheable {
		cached, err := s.cache.Get(ctx, month, r.End, version)
		switch {
		case err != nil:
			metrics.SummaryCache.WithLabelValues("error").Inc()
			s.log.Warn().Err(err).Str("month", month.String()).Msg("summary cache read failed")
		case cached != nil:
			metrics.SummaryCache.WithLabelValues("hit").Inc()
			return *cached, nil
		default:
			metrics.SummaryCache.WithLabelValues("miss").Inc()
		}
	}

	sheet, err := s.snapshot(ctx, r)
	if err != nil {
		return MonthSummary{}, err
	}
	out := MonthSummary{
		Month:       month.String(),
		End:         r.End.Format(calendar.DateLayout),
		WorkingDays: len(sheet.WorkingDays),
		Summary:     sheet.Summary,
	}

	if cacheable {
		if err := s.cache.Set(ctx, month, r.End, version, out); err != nil {
			s.log.Warn().Err(err).Str("month", month.String()).Msg("summary cache write failed")
		}
	}
	return out, nil
}

// Sheet reads a fresh snapshot of the month for report rendering.
func (s *Service) Sheet(ctx context.Context, month calendar.Month) (*Sheet, error) {
	today := s.Today()
	return s.snapshot(ctx, calendar.WorkingDays(month, &today))
}

// snapshot reads the roster, then the present records. The two reads are
// not atomic; a mark landing in between may or may not be reflected.
func (s *Service) snapshot(ctx context.Context, r calendar.Range) (*Sheet, error) {
	roster, err := s.store.Students(ctx)
	if err != nil {
		return nil, storeErr("students", err)
	}
	present, err := s.store.PresentBetween(ctx, r.Start, r.End)
	if err != nil {
		return nil, storeErr("present records", err)
	}
	working := r.WorkingDays()
	return &Sheet{
		Range:       r,
		WorkingDays: working,
		Roster:      roster,
		Presence:    NewPresence(present),
		Summary:     ComputeMonthlySummary(working, present, roster),
	}, nil
}

// StudentMonth returns one student's day-by-day attendance for the month.
// Rest days carry an empty status.
func (s *Service) StudentMonth(ctx context.Context, enrollment string, month calendar.Month) (StudentMonth, error) {
	st, err := s.store.Student(ctx, strings.TrimSpace(enrollment))
	if err != nil {
		return StudentMonth{}, storeErr("find student", err)
	}
	today := s.Today()
	r := calendar.WorkingDays(month, &today)

	present, err := s.store.PresentBetween(ctx, r.Start, r.End)
	if err != nil {
		return StudentMonth{}, storeErr("present records", err)
	}
	presence := NewPresence(present)

	out := StudentMonth{Enrollment: st.Enrollment, Name: st.Name, Month: month.String(), Records: []DayStatus{}}
	for d := range r.Dates() {
		ds := DayStatus{Date: d.Format(calendar.DateLayout)}
		if !calendar.IsRestDay(d) {
			out.WorkingDays++
			if presence.Has(st.Enrollment, d) {
				ds.Status = Present
				out.Present++
			} else {
				ds.Status = Absent
			}
		}
		out.Records = append(out.Records, ds)
	}
	out.Absent = out.WorkingDays - out.Present
	return out, nil
}
