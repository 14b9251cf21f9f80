package search

import (
	"context"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/usecase/genai"
	"github.com/kailas-cloud/tripwise/internal/usecase/vectorstore"
)

// Retriever ranks stored records against a query.
type Retriever interface {
	SearchSimilar(ctx context.Context, q vectorstore.Query) []domcontent.Hit
	Configured() bool
}

// Generator runs generative tasks through the provider chain.
type Generator interface {
	Run(ctx context.Context, task genai.Task) genai.Result
}
