package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kailas-cloud/tripwise/internal/domain/geo"
)

func TestConsolidate(t *testing.T) {
	frags := []Fragment{
		{Source: DataSource{Name: "wikipedia", Reliability: 0.8}, Summary: "Holy town", Coordinates: &geo.Coordinates{}},
		{
			Source:      DataSource{Name: "nominatim", Reliability: 0.9},
			Country:     "India",
			Region:      "Rajasthan",
			Coordinates: &geo.Coordinates{Lat: 26.49, Lng: 74.55},
			Facts:       map[string]string{"currency": "INR"},
		},
	}
	raw := Consolidate("Pushkar", "", frags, nil)

	assert.Equal(t, "India", raw.Country)
	assert.Equal(t, "Holy town", raw.Summary())
	assert.Equal(t, "Rajasthan", raw.Region())
	assert.Equal(t, "INR", raw.Fact("currency"))
	assert.Empty(t, raw.Fact("missing"))
	assert.NotNil(t, raw.Failures)

	c, ok := raw.Coordinates()
	assert.True(t, ok, "invalid zero coordinates are skipped")
	assert.InDelta(t, 26.49, c.Lat, 1e-9)

	assert.InDelta(t, 0.85, raw.MeanReliability(), 1e-9)
	assert.Len(t, raw.Sources(), 2)
}

func TestConsolidate_Empty(t *testing.T) {
	raw := Consolidate("Nowhere", "Atlantis", nil, map[string]string{"wikipedia": "timeout"})
	assert.Equal(t, "Atlantis", raw.Country)
	assert.Zero(t, raw.MeanReliability())
	_, ok := raw.Coordinates()
	assert.False(t, ok)
}
