package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"rollbook/internal/account"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
)

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T, store attendance.Store, checks map[string]Check) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accounts := account.NewService(account.NewMemoryRepository(), account.WithHashCost(bcrypt.MinCost))
	tokens := auth.NewIssuer("rollbook-test", "test-key", time.Hour, 24*time.Hour)
	att := attendance.NewService(store, attendance.WithClock(func() time.Time {
		return time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	}))

	teacher, err := accounts.Signup(context.Background(), "owner@school.test", "long-enough")
	require.NoError(t, err)
	pair, err := tokens.Issue(teacher.ID, auth.RoleTeacher)
	require.NoError(t, err)

	r := NewRouter(Deps{
		Attendance:  att,
		Accounts:    accounts,
		Tokens:      tokens,
		Institution: "Springfield High",
		CORSOrigins: []string{"http://localhost:5173"},
		Checks:      checks,
		Logger:      zerolog.Nop(),
	})
	return &testServer{router: r, token: pair.AccessToken}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, attendance.NewMemoryStore(), nil)
	creds := gin.H{"email": "new@school.test", "password": "s3cret-pass"}

	w := s.do(t, http.MethodPost, "/auth/signup", creds, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.Equal(t, "new@school.test", body["teacher"].(map[string]any)["email"])
	assert.NotContains(t, w.Body.String(), "$2a$")

	w = s.do(t, http.MethodPost, "/auth/signup", creds, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/auth/signup", gin.H{"email": "x@school.test", "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", gin.H{"email": "new@school.test", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, w.Code)
	session := decode(t, w)
	access := session["token"].(string)
	refresh := session["refresh_token"].(string)

	w = s.do(t, http.MethodGet, "/auth/me", nil, access)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "new@school.test", decode(t, w)["teacher"].(map[string]any)["email"])

	w = s.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": access}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/students", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/students", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStudentsAndMarking(t *testing.T) {
	s := newTestServer(t, attendance.NewMemoryStore(), nil)

	for _, st := range []gin.H{{"enrollment": "E2", "name": "Bob"}, {"enrollment": "E1", "name": "Alice"}} {
		w := s.do(t, http.MethodPost, "/students", st, s.token)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	w := s.do(t, http.MethodPost, "/students", gin.H{"enrollment": "E1", "name": "Again"}, s.token)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = s.do(t, http.MethodPost, "/students", gin.H{"enrollment": "E3"}, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "name is required")

	w = s.do(t, http.MethodGet, "/students", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	roster := decode(t, w)["students"].([]any)
	require.Len(t, roster, 2)
	assert.Equal(t, "E1", roster[0].(map[string]any)["enrollment"])

	w = s.do(t, http.MethodPost, "/attendance/mark", gin.H{
		"date": "2025-04-01",
		"records": []gin.H{
			{"enrollment": "E1", "present": true},
			{"enrollment": "E2", "present": false},
			{"enrollment": "X9", "present": true},
		},
	}, s.token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode(t, w)
	assert.Equal(t, float64(2), res["marked"])
	assert.Equal(t, []any{"X9"}, res["skipped"])

	w = s.do(t, http.MethodPost, "/attendance/mark", gin.H{"date": "01/04/2025", "records": []gin.H{{"enrollment": "E1"}}}, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPost, "/attendance/mark", gin.H{"date": "2025-04-01", "records": []gin.H{}}, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/attendance/today?date=2025-04-01", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	day := decode(t, w)
	assert.Equal(t, "2025-04-01", day["date"])
	assert.Len(t, day["records"], 2)

	w = s.do(t, http.MethodGet, "/attendance/today?date=2025-04-02", nil, s.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/attendance/today", nil, s.token)
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing marked on the clock's today")
	w = s.do(t, http.MethodGet, "/attendance/today?date=tomorrow", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func seedApril(t *testing.T, s *testServer) {
	t.Helper()
	for _, st := range []gin.H{{"enrollment": "E1", "name": "Alice"}, {"enrollment": "E2", "name": "Bob"}} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/students", st, s.token).Code)
	}
	for _, d := range []string{"2025-04-01", "2025-04-02", "2025-04-06"} {
		w := s.do(t, http.MethodPost, "/attendance/mark", gin.H{
			"date":    d,
			"records": []gin.H{{"enrollment": "E1", "present": true}, {"enrollment": "E2", "present": false}},
		}, s.token)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestMonthSummary(t *testing.T) {
	s := newTestServer(t, attendance.NewMemoryStore(), nil)
	seedApril(t, s)

	w := s.do(t, http.MethodGet, "/attendance/month-summary/2025-04", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2025-04", body["month"])
	assert.Equal(t, float64(26), body["totalWorkingDays"])

	rows := body["summary"].([]any)
	require.Len(t, rows, 2)
	alice := rows[0].(map[string]any)
	assert.Equal(t, float64(2), alice["totalPresent"], "Sunday presence is not counted")
	assert.Equal(t, float64(24), alice["totalAbsent"])
	assert.Equal(t, 7.69, alice["percentage"])
	bob := rows[1].(map[string]any)
	assert.Equal(t, float64(0), bob["totalPresent"])
	assert.Equal(t, float64(26), bob["totalAbsent"])

	w = s.do(t, http.MethodGet, "/attendance/month-summary/2025-13", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentMonth(t *testing.T) {
	s := newTestServer(t, attendance.NewMemoryStore(), nil)
	seedApril(t, s)

	w := s.do(t, http.MethodGet, "/attendance/student/E1/2025-04", nil, s.token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	records := body["records"].([]any)
	require.Len(t, records, 30)
	sunday := records[5].(map[string]any)
	assert.Equal(t, "2025-04-06", sunday["date"])
	assert.Equal(t, "", sunday["status"])
	assert.Equal(t, "Present", records[0].(map[string]any)["status"])
	assert.Equal(t, float64(2), body["totalPresent"])

	w = s.do(t, http.MethodGet, "/attendance/student/NOPE/2025-04", nil, s.token)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/attendance/student/E1/April", nil, s.token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "YYYY-MM")
}

func TestExportFormats(t *testing.T) {
	s := newTestServer(t, attendance.NewMemoryStore(), nil)
	seedApril(t, s)

	tests := []struct {
		query       string
		contentType string
		filename    string
	}{
		{"", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "Attendance-2025-04.xlsx"},
		{"?format=excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "Attendance-2025-04.xlsx"},
		{"?format=pdf", "application/pdf", "Attendance-2025-04.pdf"},
		{"?format=csv", "text/csv", "Attendance-2025-04.csv"},
		{"?format=json", "application/json", "Attendance-2025-04.json"},
	}
	for _, tt := range tests {
		t.Run(tt.filename+tt.query, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/attendance/export/2025-04"+tt.query, nil, s.token)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType), w.Header().Get("Content-Type"))
			assert.Equal(t, `attachment; filename="`+tt.filename+`"`, w.Header().Get("Content-Disposition"))
			assert.NotZero(t, w.Body.Len())
		})
	}

	w := s.do(t, http.MethodGet, "/attendance/export/2025-04?format=csv", nil, s.token)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Enrollment,Name,01-04"))
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[1]), ",2,24,7.69"), lines[1])
}

// forbiddenStore fails the test on any access.
type forbiddenStore struct {
	calls atomic.Int32
}

var errForbidden = errors.New("store must not be reached")

func (f *forbiddenStore) hit() error {
	f.calls.Add(1)
	return errForbidden
}

func (f *forbiddenStore) Students(context.Context) ([]attendance.Student, error) {
	return nil, f.hit()
}

func (f *forbiddenStore) Student(context.Context, string) (attendance.Student, error) {
	return attendance.Student{}, f.hit()
}

func (f *forbiddenStore) CreateStudent(context.Context, attendance.Student) error { return f.hit() }

func (f *forbiddenStore) PresentBetween(context.Context, time.Time, time.Time) ([]attendance.Record, error) {
	return nil, f.hit()
}

func (f *forbiddenStore) RecordsOn(context.Context, time.Time) ([]attendance.Record, error) {
	return nil, f.hit()
}

func (f *forbiddenStore) Mark(context.Context, attendance.Record) error { return f.hit() }

func (f *forbiddenStore) Ping(context.Context) error { return f.hit() }

func TestExportRejectsBadInputBeforeStoreAccess(t *testing.T) {
	store := &forbiddenStore{}
	s := newTestServer(t, store, nil)

	for _, path := range []string{
		"/attendance/export/2025-4?format=xlsx",
		"/attendance/export/2025-00",
		"/attendance/export/abcd-ef?format=pdf",
		"/attendance/export/2025-04?format=docx",
		"/attendance/export/2025-04?format=html",
	} {
		w := s.do(t, http.MethodGet, path, nil, s.token)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Empty(t, w.Header().Get("Content-Disposition"), path)
	}
	assert.Zero(t, store.calls.Load())
}

func TestExportStoreFailureSendsNoAttachment(t *testing.T) {
	store := &forbiddenStore{}
	s := newTestServer(t, store, nil)

	w := s.do(t, http.MethodGet, "/attendance/export/2025-04?format=csv", nil, s.token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "internal error", decode(t, w)["error"])
	assert.NotZero(t, store.calls.Load())
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, attendance.NewMemoryStore(), map[string]Check{
		"store": func(context.Context) error { return nil },
	})
	w := s.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	s = newTestServer(t, attendance.NewMemoryStore(), map[string]Check{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	w = s.do(t, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["checks"].(map[string]any)["redis"])
}
