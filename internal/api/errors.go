package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"rollbook/internal/account"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/calendar"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/report"
)

// bindError is a request body or parameter that could not be decoded or validated.
type bindError struct {
	err error
}

func (e *bindError) Error() string { return describeBind(e.err) }

func (e *bindError) Unwrap() error { return e.err }

// statusOf maps a domain error to an HTTP status.
func statusOf(err error) int {
	var (
		invalidMonth *calendar.InvalidMonthError
		badFormat    *report.UnsupportedFormatError
		bind         *bindError
	)
	switch {
	case errors.As(err, &invalidMonth), errors.As(err, &badFormat), errors.As(err, &bind),
		errors.Is(err, attendance.ErrInvalidStudent), errors.Is(err, attendance.ErrMissingDate),
		errors.Is(err, account.ErrWeakPassword), errors.Is(err, account.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrStudentNotFound), errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrDuplicateStudent), errors.Is(err, account.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenType):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes the JSON error for err and aborts the request.
// Server-side failures are logged and their detail is not sent.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusUnauthorized {
		msg = "invalid credentials"
		if !errors.Is(err, account.ErrInvalidCredentials) {
			msg = "invalid token"
		}
	}
	if status >= http.StatusInternalServerError {
		ev := s.log.Error().Err(err).
			Str("request_id", httpmiddleware.GetRequestID(c)).
			Str("route", c.FullPath())
		if m := c.Param("month"); m != "" {
			ev = ev.Str("month", m)
		}
		if f := c.Query("format"); f != "" {
			ev = ev.Str("format", f)
		}
		var exportErr *report.ExportError
		if errors.As(err, &exportErr) {
			ev = ev.Str("format", string(exportErr.Format))
		}
		ev.Msg("request failed")
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func describeBind(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "malformed request: " + err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "month":
		return fmt.Sprintf("%s %q is not a YYYY-MM month", field, fe.Value())
	case "civildate":
		return fmt.Sprintf("%s %q is not a YYYY-MM-DD date", field, fe.Value())
	case "email":
		return field + " must be an email address"
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
