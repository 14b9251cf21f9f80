package destination

import (
	"strings"
	"time"

	"github.com/kailas-cloud/tripwise/internal/domain/geo"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/source"
)

// CostLevel is the coarse price tier of a destination.
type CostLevel string

// Cost tiers.
const (
	CostBudget    CostLevel = "budget"
	CostModerate  CostLevel = "moderate"
	CostExpensive CostLevel = "expensive"
	CostLuxury    CostLevel = "luxury"
)

// ParseCostLevel normalizes free text into a tier, defaulting to moderate.
func ParseCostLevel(s string) CostLevel {
	switch CostLevel(strings.ToLower(strings.TrimSpace(s))) {
	case CostBudget, "low", "cheap":
		return CostBudget
	case CostExpensive, "high":
		return CostExpensive
	case CostLuxury, "very high":
		return CostLuxury
	default:
		return CostModerate
	}
}

// Severity of a legal penalty.
type Severity string

// Penalty severities.
const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ParseSeverity normalizes free text, defaulting to moderate.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityMinor, "low":
		return SeverityMinor
	case SeveritySevere, "high", "critical":
		return SeveritySevere
	default:
		return SeverityModerate
	}
}

// Penalty is one violation and its consequence.
type Penalty struct {
	Violation string   `json:"violation"`
	Penalty   string   `json:"penalty"`
	Severity  Severity `json:"severity"`
}

// TravelLaws groups the legal rules a traveler must know.
type TravelLaws struct {
	Immigration    []string  `json:"immigration"`
	Transportation []string  `json:"transportation"`
	Accommodation  []string  `json:"accommodation"`
	PublicBehavior []string  `json:"publicBehavior"`
	Photography    []string  `json:"photography"`
	Shopping       []string  `json:"shopping"`
	Penalties      []Penalty `json:"penalties"`
}

// CulturalNorms groups etiquette and customs.
type CulturalNorms struct {
	Etiquette []string `json:"etiquette"`
	Taboos    []string `json:"taboos"`
	DressCode []string `json:"dressCode"`
	Religious []string `json:"religious"`
	Business  []string `json:"business"`
	Social    []string `json:"social"`
}

// Attraction is a point of interest.
type Attraction struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Rating      float64 `json:"rating"`
}

// Restaurant is a recommended place to eat.
type Restaurant struct {
	Name       string    `json:"name"`
	Cuisine    string    `json:"cuisine"`
	PriceLevel CostLevel `json:"priceLevel"`
}

// Event is a recurring festival or happening.
type Event struct {
	Name        string `json:"name"`
	Month       string `json:"month"`
	Description string `json:"description"`
}

// TransportOption is one way of getting around.
type TransportOption struct {
	Mode        string    `json:"mode"`
	Description string    `json:"description"`
	CostLevel   CostLevel `json:"costLevel"`
}

// Economy holds money-related practicalities.
type Economy struct {
	AverageDailyBudgetUSD float64  `json:"averageDailyBudgetUsd"`
	Tipping               string   `json:"tipping"`
	PaymentMethods        []string `json:"paymentMethods"`
}

// Climate holds seasonal information.
type Climate struct {
	BestMonths []string `json:"bestMonths"`
	Summary    string   `json:"summary"`
}

// Phrase is one entry of the language guide.
type Phrase struct {
	English string `json:"english"`
	Local   string `json:"local"`
}

// LanguageGuide is a minimal phrasebook.
type LanguageGuide struct {
	Primary string   `json:"primary"`
	Phrases []Phrase `json:"phrases"`
}

// Practical holds emergency and day-to-day logistics.
type Practical struct {
	EmergencyNumbers map[string]string `json:"emergencyNumbers"`
	BusinessHours    string            `json:"businessHours"`
	Health           []string          `json:"health"`
	Connectivity     string            `json:"connectivity"`
	Plug             string            `json:"plug"`
}

// QualityMetadata tracks provenance and quality of the record.
type QualityMetadata struct {
	Metrics     quality.Metrics     `json:"metrics"`
	LastUpdated time.Time           `json:"lastUpdated"`
	Sources     []source.DataSource `json:"sources"`
	Version     int                 `json:"version"`
}

// Destination is the enriched travel record. Every nested block is always
// present; unknown values carry documented defaults rather than null.
type Destination struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Country             string            `json:"country"`
	Region              string            `json:"region"`
	Coordinates         geo.Coordinates   `json:"coordinates"`
	Description         string            `json:"description"`
	Population          int64             `json:"population"`
	Languages           []string          `json:"languages"`
	Currency            string            `json:"currency"`
	SafetyRating        float64           `json:"safetyRating"`
	TouristFriendliness float64           `json:"touristFriendliness"`
	CostLevel           CostLevel         `json:"costLevel"`
	Laws                TravelLaws        `json:"travelLaws"`
	Culture             CulturalNorms     `json:"culturalNorms"`
	Attractions         []Attraction      `json:"attractions"`
	Restaurants         []Restaurant      `json:"restaurants"`
	Events              []Event           `json:"events"`
	Transport           []TransportOption `json:"transport"`
	Economy             Economy           `json:"economy"`
	Climate             Climate           `json:"climate"`
	LanguageGuide       LanguageGuide     `json:"languageGuide"`
	Practical           Practical         `json:"practical"`
	Quality             QualityMetadata   `json:"quality"`
}

// HasSeverePenalty reports whether any penalty is severe.
func (d *Destination) HasSeverePenalty() bool {
	for _, p := range d.Laws.Penalties {
		if p.Severity == SeveritySevere {
			return true
		}
	}
	return false
}

// Age returns the time since the last update.
func (d *Destination) Age(now time.Time) time.Duration {
	if d.Quality.LastUpdated.IsZero() {
		return 0
	}
	return now.Sub(d.Quality.LastUpdated)
}
