package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/tripwise/internal/domain/destination"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 1024
	DefaultLimit   = 5
	MaxLimit       = 20
)

// Context carries traveler preferences used to enhance the query.
type Context struct {
	Budget              string   `json:"budget,omitempty"`
	Interests           []string `json:"interests,omitempty"`
	CulturalPreferences []string `json:"culturalPreferences,omitempty"`
	LegalConcerns       []string `json:"legalConcerns,omitempty"`
	Languages           []string `json:"languages,omitempty"`
}

// Filters restrict which destinations are acceptable.
type Filters struct {
	MinSafetyRating float64                 `json:"minSafetyRating,omitempty"`
	CostLevels      []destination.CostLevel `json:"costLevels,omitempty"`
	Countries       []string                `json:"countries,omitempty"`
}

// Request is a validated search query.
type Request struct {
	query   string
	context Context
	filters Filters
	limit   int
}

// New validates and normalizes search parameters. Limit defaults to 5.
func New(query string, ctx *Context, filters *Filters, limit int) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	r := Request{query: query, limit: limit}
	if ctx != nil {
		r.context = *ctx
	}
	if filters != nil {
		if filters.MinSafetyRating < 0 || filters.MinSafetyRating > 10 {
			return Request{}, fmt.Errorf("minSafetyRating must be between 0 and 10")
		}
		r.filters = *filters
	}
	return r, nil
}

// Query returns the raw query text.
func (r *Request) Query() string { return r.query }

// Context returns traveler preferences.
func (r *Request) Context() Context { return r.context }

// Filters returns destination filters.
func (r *Request) Filters() Filters { return r.filters }

// Limit returns the maximum destinations to materialize.
func (r *Request) Limit() int { return r.limit }

// Enhanced appends context and filter terms to the query so the embedding
// reflects the traveler's intent.
func (r *Request) Enhanced() string {
	parts := []string{r.query}
	c := r.context
	if c.Budget != "" {
		parts = append(parts, "budget: "+c.Budget)
	}
	if len(c.Interests) > 0 {
		parts = append(parts, "interests: "+strings.Join(c.Interests, ", "))
	}
	if len(c.CulturalPreferences) > 0 {
		parts = append(parts, "cultural preferences: "+strings.Join(c.CulturalPreferences, ", "))
	}
	if len(c.LegalConcerns) > 0 {
		parts = append(parts, "legal concerns: "+strings.Join(c.LegalConcerns, ", "))
	}
	if len(c.Languages) > 0 {
		parts = append(parts, "languages: "+strings.Join(c.Languages, ", "))
	}
	if r.filters.MinSafetyRating > 0 {
		parts = append(parts, fmt.Sprintf("safety rating at least %.0f", r.filters.MinSafetyRating))
	}
	if len(r.filters.CostLevels) > 0 {
		levels := make([]string, len(r.filters.CostLevels))
		for i, l := range r.filters.CostLevels {
			levels[i] = string(l)
		}
		parts = append(parts, "cost: "+strings.Join(levels, ", "))
	}
	return strings.Join(parts, " | ")
}

// Accepts reports whether d passes the filters.
func (f Filters) Accepts(d *destination.Destination) bool {
	if f.MinSafetyRating > 0 && d.SafetyRating < f.MinSafetyRating {
		return false
	}
	if len(f.CostLevels) > 0 && !containsFold(costStrings(f.CostLevels), string(d.CostLevel)) {
		return false
	}
	if len(f.Countries) > 0 && !containsFold(f.Countries, d.Country) {
		return false
	}
	return true
}

func costStrings(levels []destination.CostLevel) []string {
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = string(l)
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
