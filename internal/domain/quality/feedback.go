package quality

import (
	"fmt"
	"time"
)

// Category is the aspect of a destination a piece of feedback rates.
type Category string

// Feedback categories.
const (
	CategoryAccuracy     Category = "accuracy"
	CategoryCompleteness Category = "completeness"
	CategoryUsefulness   Category = "usefulness"
	CategoryTimeliness   Category = "timeliness"
)

// Categories lists every valid category.
var Categories = []Category{CategoryAccuracy, CategoryCompleteness, CategoryUsefulness, CategoryTimeliness}

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is one append-only user rating.
type Feedback struct {
	ID            string    `json:"id"`
	DestinationID string    `json:"destinationId"`
	Rating        int       `json:"rating"`
	Category      Category  `json:"category"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewFeedback validates a rating submission.
func NewFeedback(destinationID string, rating int, category Category, comment string) (Feedback, error) {
	if destinationID == "" {
		return Feedback{}, fmt.Errorf("destination id is required")
	}
	if rating < MinRating || rating > MaxRating {
		return Feedback{}, fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating)
	}
	if !category.IsValid() {
		return Feedback{}, fmt.Errorf("unknown feedback category %q", category)
	}
	if len(comment) > 2000 {
		return Feedback{}, fmt.Errorf("comment too long (max 2000 chars)")
	}
	return Feedback{
		DestinationID: destinationID,
		Rating:        rating,
		Category:      category,
		Comment:       comment,
	}, nil
}

// Summary is the mean rating for one destination, overall and per category.
type Summary struct {
	DestinationID string               `json:"destinationId"`
	Count         int                  `json:"count"`
	Overall       float64              `json:"overall"`
	ByCategory    map[Category]float64 `json:"byCategory"`
}

// Summarize computes the overall and per-category means.
func Summarize(destinationID string, items []Feedback) Summary {
	s := Summary{DestinationID: destinationID, ByCategory: make(map[Category]float64)}
	if len(items) == 0 {
		return s
	}
	sums := make(map[Category]int)
	counts := make(map[Category]int)
	total := 0
	for _, f := range items {
		total += f.Rating
		sums[f.Category] += f.Rating
		counts[f.Category]++
	}
	s.Count = len(items)
	s.Overall = float64(total) / float64(len(items))
	for c, n := range counts {
		s.ByCategory[c] = float64(sums[c]) / float64(n)
	}
	return s
}

// ValidationScore maps a mean 1..5 rating onto [0,1].
func ValidationScore(meanRating float64) float64 {
	if meanRating <= 0 {
		return 0
	}
	return clamp01((meanRating - MinRating) / (MaxRating - MinRating))
}
