package destination

import (
	"context"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	domdest "github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
)

// Acquirer fetches, enriches and stores destinations.
type Acquirer interface {
	Acquire(ctx context.Context, city, country string) domdest.Destination
	StoreInKnowledgeBase(ctx context.Context, d domdest.Destination) (string, error)
}

// Scorer applies the quality gate.
type Scorer interface {
	Passes(d *domdest.Destination) (quality.Assessment, bool)
	UserValidation(ctx context.Context, destinationID string) (float64, bool)
}

// Records reads stored content records.
type Records interface {
	GetByKey(ctx context.Context, contentType, contentID string) (domcontent.Record, error)
}
