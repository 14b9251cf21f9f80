package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers every tripwise collector with the default registry.
// Must be called from main; repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		MustRegisterTo(prometheus.DefaultRegisterer)
	})
}

// MustRegisterTo registers every collector with r.
func MustRegisterTo(r prometheus.Registerer) {
	groups := [][]prometheus.Collector{
		embeddingCollectors(),
		generationCollectors(),
		acquisitionCollectors(),
		pipelineCollectors(),
		searchCollectors(),
		httpCollectors(),
	}
	for _, g := range groups {
		r.MustRegister(g...)
	}
}
