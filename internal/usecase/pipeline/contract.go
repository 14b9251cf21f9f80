package pipeline

import (
	"context"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
	"github.com/kailas-cloud/tripwise/internal/usecase/destination"
)

// Destinations refreshes and expands the corpus.
type Destinations interface {
	Update(ctx context.Context, id string) (destination.Result, error)
	Expand(ctx context.Context, name, country string) (destination.Result, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// Corpus lists records for the update phase and maintains the index.
type Corpus interface {
	Oldest(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error)
	Count(ctx context.Context) (int, error)
	EnsureIndex(ctx context.Context) error
}

// Reporter produces the fleet-wide quality report.
type Reporter interface {
	GenerateReport(ctx context.Context) (quality.Report, error)
}

// RunLog persists finished runs.
type RunLog interface {
	AppendRun(ctx context.Context, s dompipe.RunStats) error
}
