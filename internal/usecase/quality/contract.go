package quality

import (
	"context"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
)

// FeedbackStore persists append-only user feedback.
type FeedbackStore interface {
	Append(ctx context.Context, f quality.Feedback) (quality.Feedback, error)
	Summary(ctx context.Context, destinationID string) (quality.Summary, error)
	Distribution(ctx context.Context) (map[int]int, error)
}

// Corpus lists stored content records.
type Corpus interface {
	List(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error)
}
