package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/calendar"
	"rollbook/internal/metrics"
	"rollbook/internal/report"
)

type studentRequest struct {
	Enrollment string `json:"enrollment" binding:"required,max=64"`
	Name       string `json:"name" binding:"required,max=200"`
}

type markRequest struct {
	Date    string `json:"date" binding:"required,civildate"`
	Records []struct {
		Enrollment string `json:"enrollment" binding:"required"`
		Present    bool   `json:"present"`
	} `json:"records" binding:"required,min=1,dive"`
}

type todayQuery struct {
	Date string `form:"date" binding:"omitempty,civildate"`
}

type studentMonthURI struct {
	Enrollment string `uri:"enrollment" binding:"required"`
	Month      string `uri:"month" binding:"required,month"`
}

type recordView struct {
	Enrollment string            `json:"enrollment"`
	Name       string            `json:"name"`
	Date       string            `json:"date"`
	Status     attendance.Status `json:"status"`
}

func (s *Server) listStudents(c *gin.Context) {
	roster, err := s.att.Students(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": roster})
}

func (s *Server) createStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	st, err := s.att.CreateStudent(c.Request.Context(), attendance.Student{Enrollment: req.Enrollment, Name: req.Name})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	date, _ := calendar.ParseDate(req.Date)
	in := attendance.MarkRequest{Date: date, Entries: make([]attendance.MarkEntry, 0, len(req.Records))}
	for _, r := range req.Records {
		in.Entries = append(in.Entries, attendance.MarkEntry{Enrollment: r.Enrollment, Present: r.Present})
	}
	res, err := s.att.Mark(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) today(c *gin.Context) {
	var q todayQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	date := s.att.Today()
	if q.Date != "" {
		date, _ = calendar.ParseDate(q.Date)
	}
	recs, err := s.att.Day(c.Request.Context(), date)
	if err != nil {
		s.respondError(c, err)
		return
	}
	day := date.Format(calendar.DateLayout)
	if len(recs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no attendance recorded for " + day})
		return
	}
	views := make([]recordView, 0, len(recs))
	for _, r := range recs {
		views = append(views, recordView{Enrollment: r.Enrollment, Name: r.Name, Date: day, Status: r.Status})
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "records": views})
}

func (s *Server) monthSummary(c *gin.Context) {
	month, err := calendar.ParseMonth(c.Param("month"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	sum, err := s.att.MonthSummary(c.Request.Context(), month)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// export validates month and format before touching the store, renders the
// whole report in memory, and only then writes the attachment.
func (s *Server) export(c *gin.Context) {
	month, err := calendar.ParseMonth(c.Param("month"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	sheet, err := s.att.Sheet(c.Request.Context(), month)
	if err != nil {
		metrics.Exports.WithLabelValues(string(format), "error").Inc()
		s.respondError(c, err)
		return
	}

	start := time.Now()
	body, err := report.RenderBytes(format, report.Build(sheet, s.institution))
	metrics.ExportDuration.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Exports.WithLabelValues(string(format), "error").Inc()
		s.respondError(c, err)
		return
	}
	metrics.Exports.WithLabelValues(string(format), "ok").Inc()

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename(month, format)+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), body)
}

func (s *Server) studentMonth(c *gin.Context) {
	var uri studentMonthURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.respondError(c, &bindError{err})
		return
	}
	month, _ := calendar.ParseMonth(uri.Month)
	view, err := s.att.StudentMonth(c.Request.Context(), uri.Enrollment, month)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
