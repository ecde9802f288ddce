// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollbook",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rollbook",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	Exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollbook",
		Name:      "exports_total",
		Help:      "Monthly report exports by format and outcome.",
	}, []string{"format", "outcome"})

	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rollbook",
		Name:      "export_render_seconds",
		Help:      "Time spent rendering a monthly report.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"format"})

	RecordsMarked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollbook",
		Name:      "records_marked_total",
		Help:      "Attendance records written, by status.",
	}, []string{"status"})

	SummaryCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollbook",
		Name:      "summary_cache_total",
		Help:      "Month summary cache lookups by result.",
	}, []string{"result"})
)
