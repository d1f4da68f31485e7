package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecordClassification(t *testing.T) {
	m := New()
	m.RecordClassification("2022-06", 5, 2, 10*time.Millisecond, nil)
	m.RecordClassification("2022-06", 3, 0, time.Millisecond, errors.New("boom"))

	body := scrape(t, m)
	assert.Contains(t, body, `mindcast_classifier_titles_total{outcome="related",version="2022-06"} 2`)
	assert.Contains(t, body, `mindcast_classifier_titles_total{outcome="unrelated",version="2022-06"} 3`)
	assert.Contains(t, body, `mindcast_classifier_duration_seconds_count{status="error",version="2022-06"} 1`)
}

func TestObserveIndex(t *testing.T) {
	m := New()
	m.ObserveIndex("2022-06", "built", time.Second)
	m.ObserveIndex("2022-06", "hit", time.Millisecond)
	m.ObserveIndex("2022-06", "hit", time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `mindcast_index_resolutions_total{source="built",version="2022-06"} 1`)
	assert.Contains(t, body, `mindcast_index_resolutions_total{source="hit",version="2022-06"} 2`)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/runs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, scrape(t, m), `mindcast_http_requests_total{method="GET",route="/api/v1/runs/{id}",status="404"} 1`)
}
