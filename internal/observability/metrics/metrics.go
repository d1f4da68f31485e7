// Package metrics exposes Prometheus collectors for classification, index builds and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mindcast"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	titlesTotal      *prometheus.CounterVec
	classifyDuration *prometheus.HistogramVec
	indexTotal       *prometheus.CounterVec
	indexDuration    *prometheus.HistogramVec

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
}

// New registers all collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	titlesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "titles_total",
			Help:      "Titles classified by taxonomy version and outcome.",
		},
		[]string{"version", "outcome"},
	)
	classifyDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "duration_seconds",
			Help:      "Classification call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"version", "status"},
	)
	indexTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "resolutions_total",
			Help:      "Embedding index resolutions by source (hit, built, stale, error).",
		},
		[]string{"version", "source"},
	)
	indexDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "resolve_duration_seconds",
			Help:      "Time to load or build an embedding index.",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"source"},
	)
	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
		},
	)

	registry.MustRegister(
		titlesTotal,
		classifyDuration,
		indexTotal,
		indexDuration,
		requestTotal,
		requestDuration,
		requestInFlight,
	)

	return &Metrics{
		registry:         registry,
		titlesTotal:      titlesTotal,
		classifyDuration: classifyDuration,
		indexTotal:       indexTotal,
		indexDuration:    indexDuration,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordClassification counts one Classify call.
func (m *Metrics) RecordClassification(version string, total, related int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.classifyDuration.WithLabelValues(version, status).Observe(duration.Seconds())
	if err != nil {
		return
	}
	if related > 0 {
		m.titlesTotal.WithLabelValues(version, "related").Add(float64(related))
	}
	if rest := total - related; rest > 0 {
		m.titlesTotal.WithLabelValues(version, "unrelated").Add(float64(rest))
	}
}

// ObserveIndex records where an index came from.
func (m *Metrics) ObserveIndex(version, source string, elapsed time.Duration) {
	m.indexTotal.WithLabelValues(version, source).Inc()
	m.indexDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
