// Package metrics exposes prometheus instrumentation for exam preparation and
// the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels of quizgen_questions_total.
const (
	OutcomeResolved    = "resolved"
	OutcomeSkipped     = "skipped"
	OutcomePassthrough = "passthrough"
)

type Metrics struct {
	Questions       *prometheus.CounterVec
	PrepareDuration prometheus.Histogram
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry
// keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Questions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_questions_total",
				Help: "Questions processed by the preparation pipeline, by outcome.",
			},
			[]string{"outcome"},
		),
		PrepareDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quizgen_prepare_duration_seconds",
			Help:    "Wall time of one Prepare call.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quizgen_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Questions, m.PrepareDuration, m.RequestCounter, m.RequestDuration)
	return m
}

func (m *Metrics) ObserveQuestion(outcome string) {
	m.Questions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePrepare(d time.Duration) {
	m.PrepareDuration.Observe(d.Seconds())
}

// Middleware counts requests by chi route pattern, so /exams/{examID} is one
// series regardless of the id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
