package metrics

import "github.com/prometheus/client_golang/prometheus"

// Data acquisition Prometheus metrics.
var (
	SourceFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "External data source fetches by source and outcome",
		},
		[]string{"source", "outcome"}, // "ok" / "error" / "timeout"
	)

	SourceFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_fetch_duration_seconds",
			Help:      "External data source fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"source"},
	)

	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_total",
			Help:      "Destination enrichments by outcome",
		},
		[]string{"outcome"}, // "generated" / "fallback"
	)
)

func acquisitionCollectors() []prometheus.Collector {
	return []prometheus.Collector{SourceFetchTotal, SourceFetchDuration, EnrichmentTotal}
}
