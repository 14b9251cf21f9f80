package chi

import (
	"context"

	domdest "github.com/kailas-cloud/tripwise/internal/domain/destination"
	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/request"
	"github.com/kailas-cloud/tripwise/internal/domain/search/response"
	destinationuc "github.com/kailas-cloud/tripwise/internal/usecase/destination"
	healthuc "github.com/kailas-cloud/tripwise/internal/usecase/health"
)

// Searcher answers traveler queries.
type Searcher interface {
	Search(ctx context.Context, req request.Request) response.Response
}

// Destinations adds, refreshes and reads destinations.
type Destinations interface {
	Add(ctx context.Context, name, country string) (destinationuc.Result, error)
	Update(ctx context.Context, id string) (destinationuc.Result, error)
	Get(ctx context.Context, id string) (domdest.Destination, error)
}

// Quality handles feedback and the corpus report.
type Quality interface {
	SubmitFeedback(
		ctx context.Context, destinationID string, rating int, category quality.Category, comment string,
	) (quality.Feedback, error)
	FeedbackSummary(ctx context.Context, destinationID string) (quality.Summary, error)
	GenerateReport(ctx context.Context) (quality.Report, error)
}

// Pipeline exposes manual runs and the current run state.
type Pipeline interface {
	Trigger(trigger dompipe.Trigger) dompipe.RunStats
	Status() dompipe.RunStats
}

// RunHistory lists completed pipeline runs, newest first.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]dompipe.RunStats, error)
}

// Health reports component checks and the system summary.
type Health interface {
	Check(ctx context.Context) healthuc.Report
	SystemStatus(ctx context.Context) healthuc.SystemStatus
}
