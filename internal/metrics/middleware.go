package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Route labels for requests chi could not match.
const (
	routeUnmatched   = "unmatched"
	surfaceUnmatched = "none"
	metricsRoute     = "/metrics"
)

var (
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency by surface and route. Search fans out to generation, so its tail is long.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"surface", "method", "route", "status"},
	)

	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by surface, route and status code.",
		},
		[]string{"surface", "method", "route", "status"},
	)

	apiResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_size_bytes",
			Help:      "Response body size; search envelopes and quality reports dominate.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
		},
		[]string{"surface"},
	)

	apiInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_in_flight",
		Help:      "API requests currently being served.",
	})
)

func httpCollectors() []prometheus.Collector {
	return []prometheus.Collector{apiRequestDuration, apiRequestsTotal, apiResponseBytes, apiInFlight}
}

// Middleware records latency, status and response size per API surface.
// Prometheus scrapes of /metrics are not counted.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == metricsRoute {
				next.ServeHTTP(w, r)
				return
			}
			apiInFlight.Inc()
			defer apiInFlight.Dec()

			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			var pattern string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			route, surface := routeLabels(pattern)
			status := strconv.Itoa(rec.status)

			apiRequestDuration.WithLabelValues(surface, r.Method, route, status).Observe(time.Since(start).Seconds())
			apiRequestsTotal.WithLabelValues(surface, r.Method, route, status).Inc()
			apiResponseBytes.WithLabelValues(surface).Observe(float64(rec.bytes))
		})
	}
}

// routeLabels derives the route and surface labels from a chi pattern.
// The surface is the first path segment: "/destinations/{id}/feedback" is
// served by the destinations surface. Unmatched URLs share one label pair.
func routeLabels(pattern string) (route, surface string) {
	if pattern == "" {
		return routeUnmatched, surfaceUnmatched
	}
	seg, _, _ := strings.Cut(strings.TrimPrefix(pattern, "/"), "/")
	if seg == "" {
		seg = "root"
	}
	return pattern, seg
}

// responseRecorder captures the first status code and counts body bytes.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *responseRecorder) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err //nolint:wrapcheck // delegating to underlying ResponseWriter
}
