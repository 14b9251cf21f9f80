package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline orchestrator Prometheus metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // outcome: "ok" / "degraded" / "skipped"
	)

	PipelineItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_items_total",
			Help:      "Pipeline items by phase and result",
		},
		[]string{"phase", "result"}, // result: "added" / "updated" / "skipped" / "error"
	)

	PipelineRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   []float64{1, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	PipelineRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is in progress",
		},
	)
)

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{PipelineRunsTotal, PipelineItemsTotal, PipelineRunDuration, PipelineRunning}
}
