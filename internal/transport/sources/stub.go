package sources

import (
	"context"
	"maps"
	"time"

	"github.com/kailas-cloud/tripwise/internal/domain/source"
)

// Stub is a placeholder source for feeds without an open API (advisories,
// weather, currency, events). It answers with low-reliability generic facts
// so consolidation always sees every source type.
type Stub struct {
	name  string
	typ   source.Type
	facts map[string]string
	now   func() time.Time
}

// NewStub creates a stub source.
func NewStub(name string, typ source.Type, facts map[string]string) *Stub {
	return &Stub{name: name, typ: typ, facts: facts, now: time.Now}
}

// DefaultStubs returns the advisory, weather, currency and events stubs.
func DefaultStubs() []*Stub {
	return []*Stub{
		NewStub("travel-advisory", source.TypeAdvisory, map[string]string{
			"advisory": "Exercise normal precautions",
		}),
		NewStub("weather", source.TypeWeather, map[string]string{
			"climate": "Check seasonal forecasts before travel",
		}),
		NewStub("currency", source.TypeCurrency, map[string]string{
			"payment": "Cards accepted in cities; carry cash for rural areas",
		}),
		NewStub("events", source.TypeEvents, map[string]string{
			"events": "Check local listings for festivals and holidays",
		}),
	}
}

// Name returns the source name.
func (s *Stub) Name() string { return s.name }

// Fetch returns the configured facts.
func (s *Stub) Fetch(ctx context.Context, _, _ string) (source.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return source.Fragment{}, err //nolint:wrapcheck // context error
	}
	return source.Fragment{
		Source: source.DataSource{
			Name:        s.name,
			Type:        s.typ,
			LastFetched: s.now().UTC(),
			Reliability: 0.3,
		},
		Facts: maps.Clone(s.facts),
	}, nil
}
