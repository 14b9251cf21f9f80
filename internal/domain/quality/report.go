package quality

import "time"

// Priority of a report flag.
type Priority string

// Flag priorities.
const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
)

// Freshness bucket bounds.
const (
	RecentAge  = 7 * 24 * time.Hour
	CurrentAge = 30 * 24 * time.Hour
)

// Flag is one fleet-wide quality recommendation.
type Flag struct {
	Priority Priority `json:"priority"`
	Issue    string   `json:"issue"`
	Action   string   `json:"action"`
}

// FreshnessBuckets counts records by age since last update.
type FreshnessBuckets struct {
	Recent  int `json:"recent"`
	Current int `json:"current"`
	Stale   int `json:"stale"`
}

// Report aggregates quality over the whole corpus.
type Report struct {
	GeneratedAt      time.Time        `json:"generatedAt"`
	TotalRecords     int              `json:"totalRecords"`
	ValidRecords     int              `json:"validRecords"`
	Averages         Metrics          `json:"averages"`
	Freshness        FreshnessBuckets `json:"freshness"`
	StaleIDs         []string         `json:"staleIds"`
	Satisfaction     Distribution     `json:"satisfaction"`
	Flags            []Flag           `json:"flags"`
	BelowGate        int              `json:"belowGate"`
	GateThreshold    float64          `json:"gateThreshold"`
	AverageScore     float64          `json:"averageScore"`
	FeedbackCount    int              `json:"feedbackCount"`
	AverageRating    float64          `json:"averageRating"`
	HasCriticalFlags bool             `json:"hasCriticalFlags"`
}

// Distribution counts feedback ratings 1..5.
type Distribution map[int]int

// Bucket places an age into the freshness bucket it belongs to.
func (b *FreshnessBuckets) Bucket(age time.Duration) string {
	switch {
	case age < RecentAge:
		b.Recent++
		return "recent"
	case age < CurrentAge:
		b.Current++
		return "current"
	default:
		b.Stale++
		return "stale"
	}
}
