package response

import (
	"net/http"

	"github.com/kailas-cloud/tripwise/internal/domain/destination"
)

// Status messages.
const (
	MessageOK          = "ok"
	MessageDemo        = "demo"
	MessageUnavailable = "unavailable"
	MessageError       = "error"
)

// Recommendation is one suggested thing to do.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

// Alert severities.
const (
	AlertCritical = "critical"
	AlertWarning  = "warning"
	AlertInfo     = "info"
)

// LegalAlert warns about a law the traveler could break.
type LegalAlert struct {
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Penalty  string `json:"penalty,omitempty"`
}

// Tip importance tags.
const (
	TipEssential  = "essential"
	TipImportant  = "important"
	TipNiceToKnow = "nice-to-know"
)

// CulturalTip is one etiquette, taboo or dress-code note.
type CulturalTip struct {
	Category   string `json:"category"`
	Tip        string `json:"tip"`
	Importance string `json:"importance"`
}

// PracticalInfo is day-to-day logistics with defaults when unknown.
type PracticalInfo struct {
	EmergencyNumbers map[string]string `json:"emergencyNumbers"`
	BusinessHours    string            `json:"businessHours"`
	Health           []string          `json:"health"`
	Connectivity     string            `json:"connectivity"`
	Currency         string            `json:"currency"`
	Tipping          string            `json:"tipping"`
}

// SimilarDestination is an alternative in another country with the same cost tier.
type SimilarDestination struct {
	ID         string                `json:"id"`
	Name       string                `json:"name"`
	Country    string                `json:"country"`
	CostLevel  destination.CostLevel `json:"costLevel"`
	Similarity float64               `json:"similarity"`
	DistanceKm float64               `json:"distanceKm,omitempty"`
}

// Metadata describes how the answer was produced.
type Metadata struct {
	Confidence   float64  `json:"confidence"`
	SearchTimeMs int64    `json:"searchTimeMs"`
	DataQuality  float64  `json:"dataQuality"`
	Sources      []string `json:"sources"`
	Candidates   int      `json:"candidates"`
}

// Status is the embedded outcome. Code mirrors HTTP semantics.
type Status struct {
	Code     int      `json:"code"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings"`
}

// Response is the search envelope. Every slice is non-nil.
type Response struct {
	Destination         *destination.Destination  `json:"destination"`
	Alternatives        []destination.Destination `json:"alternatives"`
	Recommendations     []Recommendation          `json:"recommendations"`
	LegalAlerts         []LegalAlert              `json:"legalAlerts"`
	CulturalTips        []CulturalTip             `json:"culturalTips"`
	PracticalInfo       PracticalInfo             `json:"practicalInfo"`
	SimilarDestinations []SimilarDestination      `json:"similarDestinations"`
	Metadata            Metadata                  `json:"metadata"`
	Status              Status                    `json:"status"`
}

// Empty returns a well-shaped envelope with the given status.
func Empty(code int, message string, warnings ...string) Response {
	if warnings == nil {
		warnings = []string{}
	}
	return Response{
		Alternatives:        []destination.Destination{},
		Recommendations:     []Recommendation{},
		LegalAlerts:         []LegalAlert{},
		CulturalTips:        []CulturalTip{},
		SimilarDestinations: []SimilarDestination{},
		PracticalInfo:       PracticalInfo{EmergencyNumbers: map[string]string{}, Health: []string{}},
		Metadata:            Metadata{Sources: []string{}},
		Status:              Status{Code: code, Message: message, Warnings: warnings},
	}
}

// Failure is the structured error envelope: status 500, zeroed metrics.
func Failure(warning string) Response {
	return Empty(http.StatusInternalServerError, MessageError, warning)
}

// Warn appends a warning.
func (r *Response) Warn(w string) {
	r.Status.Warnings = append(r.Status.Warnings, w)
}
