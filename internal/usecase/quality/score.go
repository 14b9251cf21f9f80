package quality

import (
	"time"

	"github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
)

// Penalty weights. They are tuning constants, not a contract.
const (
	PenaltyMissingName      = 0.2
	PenaltyMissingCountry   = 0.2
	PenaltyBadCoordinates   = 0.1
	PenaltyMissingLaws      = 0.3
	PenaltyNoPenalties      = 0.1
	PenaltyMissingEtiquette = 0.1
	PenaltyLowOverall       = 0.2
	// Staleness costs StalePenaltyPerDay for every day beyond StaleAfter, up to MaxStalePenalty.
	StalePenaltyPerDay = 0.01
	MaxStalePenalty    = 0.2

	// LowOverallThreshold is the stored overall score below which a record is penalized.
	LowOverallThreshold = 0.5
	// DefaultGateThreshold is the corpus-expansion gate.
	DefaultGateThreshold = 0.6
	// StaleAfter is the age beyond which a record counts as stale.
	StaleAfter = 30 * 24 * time.Hour
)

// Score rates a destination record. Valid is true iff no issue was found; the
// numeric score is reported independently and floors at zero.
func Score(d *destination.Destination, now time.Time) quality.Assessment {
	var issues []quality.Issue
	add := func(field, msg string, penalty float64) {
		issues = append(issues, quality.Issue{Field: field, Message: msg, Penalty: penalty})
	}

	if d.Name == "" {
		add("name", "missing destination name", PenaltyMissingName)
	}
	if d.Country == "" {
		add("country", "missing country", PenaltyMissingCountry)
	}
	if !d.Coordinates.Valid() {
		add("coordinates", "invalid coordinates", PenaltyBadCoordinates)
	}
	switch {
	case !d.Laws.Documented():
		add("travelLaws", "missing travel law information", PenaltyMissingLaws)
	case len(d.Laws.Penalties) == 0:
		add("travelLaws.penalties", "no legal penalties documented", PenaltyNoPenalties)
	}
	if !d.Culture.HasEtiquette() {
		add("culturalNorms.etiquette", "missing cultural etiquette", PenaltyMissingEtiquette)
	}
	if age := d.Age(now); age > StaleAfter {
		days := (age - StaleAfter).Hours() / 24
		add("quality.lastUpdated", "data is stale", min(MaxStalePenalty, days*StalePenaltyPerDay))
	}
	if d.Quality.Metrics.Recompute().Overall < LowOverallThreshold {
		add("quality.metrics", "low overall quality score", PenaltyLowOverall)
	}

	score := 1.0
	for _, is := range issues {
		score -= is.Penalty
	}
	if issues == nil {
		issues = []quality.Issue{}
	}
	return quality.Assessment{Valid: len(issues) == 0, Issues: issues, Score: max(0, score)}
}
