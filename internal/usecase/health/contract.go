package health

import (
	"context"

	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
	Configured() bool
}

// Corpus counts stored records.
type Corpus interface {
	Count(ctx context.Context) (int, error)
}

// Reporter produces the corpus quality report.
type Reporter interface {
	GenerateReport(ctx context.Context) (quality.Report, error)
}

// Pipeline exposes the orchestrator's current run state.
type Pipeline interface {
	Status() dompipe.RunStats
}
