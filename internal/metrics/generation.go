package metrics

import "github.com/prometheus/client_golang/prometheus"

// Generation chain Prometheus metrics.
var (
	GenerationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Generation attempts by provider and outcome",
		},
		[]string{"provider", "outcome"}, // "ok" / "error" / "invalid"
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Generation call duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"provider"},
	)

	GenerationFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_fallback_total",
			Help:      "Deterministic fallback responses served by task",
		},
		[]string{"task"},
	)
)

func generationCollectors() []prometheus.Collector {
	return []prometheus.Collector{GenerationAttemptsTotal, GenerationDuration, GenerationFallbackTotal}
}
