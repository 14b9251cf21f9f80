package quality

import (
	"encoding/json"
	"math"
)

// Metrics holds the five independent quality dimensions in [0,1].
// Overall is always the mean of the five; it is recomputed on every
// mutation, on marshal and on unmarshal, so it is never persisted stale.
type Metrics struct {
	Freshness         float64 `json:"freshness"`
	SourceReliability float64 `json:"sourceReliability"`
	UserValidation    float64 `json:"userValidation"`
	ExpertReview      float64 `json:"expertReview"`
	CrossReference    float64 `json:"crossReferenceAccuracy"`
	Overall           float64 `json:"overallScore"`
}

// NewMetrics clamps each dimension and computes Overall.
func NewMetrics(freshness, reliability, userValidation, expertReview, crossReference float64) Metrics {
	m := Metrics{
		Freshness:         freshness,
		SourceReliability: reliability,
		UserValidation:    userValidation,
		ExpertReview:      expertReview,
		CrossReference:    crossReference,
	}
	return m.Recompute()
}

// DefaultMetrics is the conservative baseline for records with no history.
func DefaultMetrics() Metrics {
	return NewMetrics(1, 0.5, 0.5, 0.5, 0.5)
}

// Recompute clamps dimensions and refreshes Overall.
func (m Metrics) Recompute() Metrics {
	m.Freshness = clamp01(m.Freshness)
	m.SourceReliability = clamp01(m.SourceReliability)
	m.UserValidation = clamp01(m.UserValidation)
	m.ExpertReview = clamp01(m.ExpertReview)
	m.CrossReference = clamp01(m.CrossReference)
	m.Overall = (m.Freshness + m.SourceReliability + m.UserValidation + m.ExpertReview + m.CrossReference) / 5
	return m
}

// WithFreshness returns a copy with freshness replaced.
func (m Metrics) WithFreshness(v float64) Metrics {
	m.Freshness = v
	return m.Recompute()
}

// WithSourceReliability returns a copy with source reliability replaced.
func (m Metrics) WithSourceReliability(v float64) Metrics {
	m.SourceReliability = v
	return m.Recompute()
}

// WithUserValidation returns a copy with user validation replaced.
func (m Metrics) WithUserValidation(v float64) Metrics {
	m.UserValidation = v
	return m.Recompute()
}

type metricsJSON Metrics

// MarshalJSON writes the metrics with a freshly computed Overall.
func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON(m.Recompute()))
}

// UnmarshalJSON reads the metrics and discards any stored Overall in favor of the mean.
func (m *Metrics) UnmarshalJSON(data []byte) error {
	var raw metricsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err //nolint:wrapcheck // json error is self-describing
	}
	*m = Metrics(raw).Recompute()
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
