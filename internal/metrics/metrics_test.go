package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveQuestion(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveQuestion(OutcomeResolved)
	m.ObserveQuestion(OutcomeResolved)
	m.ObserveQuestion(OutcomeSkipped)
	m.ObservePrepare(20 * time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m.Questions.WithLabelValues(OutcomeResolved)))
	assert.Equal(t, 1.0, counterValue(t, m.Questions.WithLabelValues(OutcomeSkipped)))

	var h dto.Metric
	require.NoError(t, m.PrepareDuration.Write(&h))
	assert.Equal(t, uint64(1), h.GetHistogram().GetSampleCount())
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/exams/{examID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/exams/"+id, nil))
	}
	assert.Equal(t, 2.0, counterValue(t, m.RequestCounter.WithLabelValues("GET", "/exams/{examID}", "418")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "quizgen_http_requests_total"))
}
