package source

import (
	"time"

	"github.com/kailas-cloud/tripwise/internal/domain/geo"
)

// Type classifies a data source.
type Type string

// Source types.
const (
	TypeEncyclopedia Type = "encyclopedia"
	TypeGeocoding    Type = "geocoding"
	TypeAdvisory     Type = "advisory"
	TypeWeather      Type = "weather"
	TypeCurrency     Type = "currency"
	TypeEvents       Type = "events"
	TypeAI           Type = "ai"
)

// DataSource is provenance attached to a destination for traceability.
type DataSource struct {
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	URL         string    `json:"url,omitempty"`
	LastFetched time.Time `json:"lastFetched"`
	Reliability float64   `json:"reliability"`
}

// Fragment is what a single source returned for one destination.
type Fragment struct {
	Source      DataSource
	Title       string
	Summary     string
	Country     string
	Region      string
	Coordinates *geo.Coordinates
	Facts       map[string]string
}

// Raw is the consolidated output of every source that answered for a city.
type Raw struct {
	City      string
	Country   string
	Fragments []Fragment
	Failures  map[string]string
}

// Consolidate merges fragments in order. Earlier fragments win for scalar fields.
func Consolidate(city, country string, fragments []Fragment, failures map[string]string) Raw {
	r := Raw{City: city, Country: country, Fragments: fragments, Failures: failures}
	if r.Failures == nil {
		r.Failures = map[string]string{}
	}
	if r.Country == "" {
		for _, f := range fragments {
			if f.Country != "" {
				r.Country = f.Country
				break
			}
		}
	}
	return r
}

// Summary returns the first non-empty summary.
func (r Raw) Summary() string {
	for _, f := range r.Fragments {
		if f.Summary != "" {
			return f.Summary
		}
	}
	return ""
}

// Region returns the first non-empty region.
func (r Raw) Region() string {
	for _, f := range r.Fragments {
		if f.Region != "" {
			return f.Region
		}
	}
	return ""
}

// Coordinates returns the first valid coordinates.
func (r Raw) Coordinates() (geo.Coordinates, bool) {
	for _, f := range r.Fragments {
		if f.Coordinates != nil && f.Coordinates.Valid() {
			return *f.Coordinates, true
		}
	}
	return geo.Coordinates{}, false
}

// Fact returns the first value for key across fragments.
func (r Raw) Fact(key string) string {
	for _, f := range r.Fragments {
		if v := f.Facts[key]; v != "" {
			return v
		}
	}
	return ""
}

// Sources returns provenance for every fragment.
func (r Raw) Sources() []DataSource {
	out := make([]DataSource, len(r.Fragments))
	for i, f := range r.Fragments {
		out[i] = f.Source
	}
	return out
}

// MeanReliability averages source reliability, zero when nothing answered.
func (r Raw) MeanReliability() float64 {
	if len(r.Fragments) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range r.Fragments {
		sum += f.Source.Reliability
	}
	return sum / float64(len(r.Fragments))
}
