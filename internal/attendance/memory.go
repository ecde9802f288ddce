package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"rollbook/internal/calendar"
)

type recordKey struct {
	enrollment string
	date       time.Time
}

// MemoryStore is a map-backed Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]Student
	records  map[recordKey]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: make(map[string]Student),
		records:  make(map[recordKey]Record),
	}
}

func (m *MemoryStore) Students(ctx context.Context) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Enrollment < out[j].Enrollment })
	return out, nil
}

func (m *MemoryStore) Student(ctx context.Context, enrollment string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[enrollment]
	if !ok {
		return Student{}, ErrStudentNotFound
	}
	return s, nil
}

func (m *MemoryStore) CreateStudent(ctx context.Context, s Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.Enrollment]; ok {
		return ErrDuplicateStudent
	}
	m.students[s.Enrollment] = s
	return nil
}

func (m *MemoryStore) PresentBetween(ctx context.Context, from, to time.Time) ([]Record, error) {
	from, to = calendar.Day(from), calendar.Day(to)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if r.Status != Present || r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

func (m *MemoryStore) RecordsOn(ctx context.Context, date time.Time) ([]Record, error) {
	date = calendar.Day(date)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, r := range m.records {
		if r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	sortRecords(out)
	return out, nil
}

func (m *MemoryStore) Mark(ctx context.Context, rec Record) error {
	rec.Date = calendar.Day(rec.Date)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{enrollment: rec.Enrollment, date: rec.Date}
	if existing, ok := m.records[key]; ok {
		existing.Status = rec.Status
		m.records[key] = existing
		return nil
	}
	m.records[key] = rec
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func sortRecords(rs []Record) {
	sort.Slice(rs, func(i, j int) bool {
		if !rs[i].Date.Equal(rs[j].Date) {
			return rs[i].Date.Before(rs[j].Date)
		}
		return rs[i].Enrollment < rs[j].Enrollment
	})
}
