package vectorstore

import (
	"context"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
)

// Repository defines the storage contract for content records.
// Both the Redis and in-memory repositories implement it.
type Repository interface {
	Dimensions() int
	EnsureIndex(ctx context.Context) error
	Save(ctx context.Context, rec *domcontent.Record) error
	Get(ctx context.Context, id string) (domcontent.Record, error)
	GetByKey(ctx context.Context, contentType, contentID string) (domcontent.Record, error)
	SearchKNN(ctx context.Context, vector []float32, expr filter.Expression, k int) ([]domcontent.Hit, error)
	List(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error)
	Oldest(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes single texts and batches.
type Embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}
