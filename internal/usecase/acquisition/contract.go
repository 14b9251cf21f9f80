package acquisition

import (
	"context"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/source"
	"github.com/kailas-cloud/tripwise/internal/usecase/genai"
)

// Source is one external data feed queried per destination.
type Source interface {
	Name() string
	Fetch(ctx context.Context, city, country string) (source.Fragment, error)
}

// Generator runs generative tasks through the provider chain.
type Generator interface {
	Run(ctx context.Context, task genai.Task) genai.Result
}

// KnowledgeBase persists content records with embeddings.
type KnowledgeBase interface {
	Store(ctx context.Context, rec domcontent.Record) (string, error)
}
