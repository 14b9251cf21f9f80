package destination

import (
	"strings"

	"github.com/kailas-cloud/tripwise/internal/domain/quality"
)

// Documented defaults for unknown required fields.
const (
	DefaultLaw           = "Follow local laws and regulations"
	DefaultImmigration   = "Check visa requirements with the official embassy before travel"
	DefaultEtiquette     = "Be respectful of local customs and traditions"
	DefaultDressCode     = "Dress modestly when visiting religious sites"
	DefaultBusinessHours = "Typically 9:00-18:00 on weekdays; verify locally"
	DefaultHealth        = "Carry travel insurance and drink bottled or treated water"
	DefaultConnectivity  = "Mobile data is generally available in urban areas"
	DefaultEmergency     = "112"
	DefaultTipping       = "Tipping customs vary; ask locally"
	DefaultSafetyRating  = 5.0
	DefaultFriendliness  = 5.0
	DefaultCurrency      = "Local currency"
	DefaultLanguage      = "Local language"
	DefaultClimate       = "Check seasonal conditions before travel"
)

// Normalize fills every missing block with defaults so consumers see a stable shape.
// It is idempotent.
func (d *Destination) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Country = strings.TrimSpace(d.Country)
	if d.Languages == nil {
		d.Languages = []string{}
	}
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	if d.SafetyRating <= 0 || d.SafetyRating > 10 {
		d.SafetyRating = DefaultSafetyRating
	}
	if d.TouristFriendliness <= 0 || d.TouristFriendliness > 10 {
		d.TouristFriendliness = DefaultFriendliness
	}
	d.CostLevel = ParseCostLevel(string(d.CostLevel))

	d.normalizeLaws()
	d.normalizeCulture()

	d.Attractions = nonNil(d.Attractions)
	d.Restaurants = nonNil(d.Restaurants)
	d.Events = nonNil(d.Events)
	d.Transport = nonNil(d.Transport)
	d.Economy.PaymentMethods = nonNil(d.Economy.PaymentMethods)
	if d.Economy.Tipping == "" {
		d.Economy.Tipping = DefaultTipping
	}
	d.Climate.BestMonths = nonNil(d.Climate.BestMonths)
	if d.Climate.Summary == "" {
		d.Climate.Summary = DefaultClimate
	}
	if d.LanguageGuide.Primary == "" {
		d.LanguageGuide.Primary = DefaultLanguage
		if len(d.Languages) > 0 {
			d.LanguageGuide.Primary = d.Languages[0]
		}
	}
	d.LanguageGuide.Phrases = nonNil(d.LanguageGuide.Phrases)

	if len(d.Practical.EmergencyNumbers) == 0 {
		d.Practical.EmergencyNumbers = map[string]string{"general": DefaultEmergency}
	}
	if d.Practical.BusinessHours == "" {
		d.Practical.BusinessHours = DefaultBusinessHours
	}
	if len(d.Practical.Health) == 0 {
		d.Practical.Health = []string{DefaultHealth}
	}
	if d.Practical.Connectivity == "" {
		d.Practical.Connectivity = DefaultConnectivity
	}

	d.Quality.Sources = nonNil(d.Quality.Sources)
	if d.Quality.Metrics == (quality.Metrics{}) {
		d.Quality.Metrics = quality.DefaultMetrics()
	}
	d.Quality.Metrics = d.Quality.Metrics.Recompute()
	if d.Quality.Version <= 0 {
		d.Quality.Version = 1
	}
}

func (d *Destination) normalizeLaws() {
	l := &d.Laws
	l.Immigration = nonNil(l.Immigration)
	l.Transportation = nonNil(l.Transportation)
	l.Accommodation = nonNil(l.Accommodation)
	l.PublicBehavior = nonNil(l.PublicBehavior)
	l.Photography = nonNil(l.Photography)
	l.Shopping = nonNil(l.Shopping)
	l.Penalties = nonNil(l.Penalties)
	for i := range l.Penalties {
		l.Penalties[i].Severity = ParseSeverity(string(l.Penalties[i].Severity))
	}
}

func (d *Destination) normalizeCulture() {
	c := &d.Culture
	c.Etiquette = nonNil(c.Etiquette)
	c.Taboos = nonNil(c.Taboos)
	c.DressCode = nonNil(c.DressCode)
	c.Religious = nonNil(c.Religious)
	c.Business = nonNil(c.Business)
	c.Social = nonNil(c.Social)
}

// ApplyConservativeDefaults seeds empty law and culture blocks with the
// documented placeholder guidance. Used for degraded and legacy records.
func (d *Destination) ApplyConservativeDefaults() {
	if len(d.Laws.PublicBehavior) == 0 {
		d.Laws.PublicBehavior = []string{DefaultLaw}
	}
	if len(d.Laws.Immigration) == 0 {
		d.Laws.Immigration = []string{DefaultImmigration}
	}
	if len(d.Culture.Etiquette) == 0 {
		d.Culture.Etiquette = []string{DefaultEtiquette}
	}
	if len(d.Culture.DressCode) == 0 {
		d.Culture.DressCode = []string{DefaultDressCode}
	}
}

// IsPlaceholder reports whether s is one of the conservative default entries.
func IsPlaceholder(s string) bool {
	switch s {
	case DefaultLaw, DefaultImmigration, DefaultEtiquette, DefaultDressCode:
		return true
	}
	return false
}

func hasContent(entries []string) bool {
	for _, e := range entries {
		if strings.TrimSpace(e) != "" && !IsPlaceholder(e) {
			return true
		}
	}
	return false
}

// Documented reports whether any law entry carries real information rather
// than a seeded default.
func (l TravelLaws) Documented() bool {
	return len(l.Penalties) > 0 ||
		hasContent(l.Immigration) || hasContent(l.Transportation) || hasContent(l.Accommodation) ||
		hasContent(l.PublicBehavior) || hasContent(l.Photography) || hasContent(l.Shopping)
}

// HasEtiquette reports whether etiquette beyond the seeded default is known.
func (c CulturalNorms) HasEtiquette() bool {
	return hasContent(c.Etiquette)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
