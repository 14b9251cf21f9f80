package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
	"github.com/kailas-cloud/tripwise/internal/domain/search/request"
	"github.com/kailas-cloud/tripwise/internal/domain/search/response"
	"github.com/kailas-cloud/tripwise/internal/domain/source"
	"github.com/kailas-cloud/tripwise/internal/metrics"
	"github.com/kailas-cloud/tripwise/internal/usecase/vectorstore"
)

// Defaults for retrieval.
const (
	DefaultTopK        = 10
	DefaultThreshold   = 0.3
	DefaultMaterialize = 5
	maxConfidence      = 0.95
)

// Warning thresholds.
const (
	lowDataQuality = 0.6
	lowSafety      = 6.0
)

// Config tunes retrieval.
type Config struct {
	TopK        int
	Threshold   float64
	Materialize int
	Timeout     time.Duration
}

// Service is the per-query search engine.
type Service struct {
	retriever Retriever
	gen       Generator
	cfg       Config
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a search engine.
func New(retriever Retriever, gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Materialize <= 0 {
		cfg.Materialize = DefaultMaterialize
	}
	return &Service{
		retriever: retriever,
		gen:       gen,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "search")),
	}
}

// Search answers a traveler query. It never fails: any unexpected fault is
// turned into the structured error envelope.
func (s *Service) Search(ctx context.Context, req request.Request) (resp response.Response) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Search panicked", zap.Any("panic", r), zap.String("query", req.Query()))
			resp = response.Failure(fmt.Sprintf("search failed: %v", r))
		}
		resp.Metadata.SearchTimeMs = s.now().Sub(start).Milliseconds()
		metrics.SearchRequestsTotal.WithLabelValues(fmt.Sprint(resp.Status.Code), resp.Status.Message).Inc()
		metrics.SearchDuration.Observe(s.now().Sub(start).Seconds())
		if resp.Status.Code == http.StatusOK {
			metrics.SearchConfidence.Observe(resp.Metadata.Confidence)
		}
	}()

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	message := response.MessageOK
	demo := !s.retriever.Configured()
	if demo {
		message = response.MessageDemo
	}

	hits := s.retriever.SearchSimilar(ctx, vectorstore.Query{
		Text:      req.Enhanced(),
		Filters:   filter.ContentTypes(domcontent.FieldContentType, domcontent.DestinationTypes...),
		Limit:     s.cfg.TopK,
		Threshold: s.cfg.Threshold,
	})
	dests := s.materialize(hits, req)

	if len(dests) == 0 {
		resp = response.Empty(http.StatusOK, message, "No destinations matched the query")
		if demo {
			resp.Warn(demoWarning)
		}
		return resp
	}

	resp = response.Empty(http.StatusOK, message)
	top := dests[0].dest
	resp.Destination = &top
	resp.Alternatives = lo.Map(dests[1:], func(m materialized, _ int) destination.Destination { return m.dest })
	resp.Metadata.Candidates = len(hits)

	if err := s.generate(ctx, &resp, &top, req); err != nil {
		s.logger.Error("Response generation failed", zap.Error(err), zap.String("query", req.Query()))
		return response.Failure(err.Error())
	}

	resp.Metadata.DataQuality = top.Quality.Metrics.Overall
	resp.Metadata.Confidence = confidence(hits, &top)
	resp.Metadata.Sources = lo.Uniq(lo.Map(top.Quality.Sources, func(d source.DataSource, _ int) string { return d.Name }))

	for _, w := range warnings(&top, demo, lo.SomeBy(hits, func(h domcontent.Hit) bool { return h.Lexical })) {
		resp.Warn(w)
	}
	return resp
}

const demoWarning = "Embedding provider not configured; results use text matching"

type materialized struct {
	dest       destination.Destination
	similarity float64
	legacy     bool
}

// materialize turns hits into destinations, upgrading legacy records and
// applying request filters. Output keeps hit order.
func (s *Service) materialize(hits []domcontent.Hit, req request.Request) []materialized {
	limit := min(s.cfg.Materialize, req.Limit())
	out := make([]materialized, 0, limit)
	seen := make(map[string]struct{}, len(hits))
	for i := range hits {
		if len(out) == limit {
			break
		}
		d, legacy := destination.FromRecord(&hits[i].Record)
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		if !req.Filters().Accepts(&d) {
			continue
		}
		if legacy {
			s.logger.Debug("Upgraded legacy record", zap.String("destination", d.ID))
		}
		out = append(out, materialized{dest: d, similarity: hits[i].Similarity, legacy: legacy})
	}
	return out
}

// generate fans out the independent generators and joins them. A panic in
// any of them is reported as an error instead of crashing the process.
func (s *Service) generate(
	ctx context.Context, resp *response.Response, top *destination.Destination, req request.Request,
) error {
	g, gctx := errgroup.WithContext(ctx)
	run := func(fn func()) {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("generator panicked: %v", r)
				}
			}()
			fn()
			return nil
		})
	}
	run(func() { resp.Recommendations = s.recommendations(gctx, top, req) })
	run(func() { resp.LegalAlerts = legalAlerts(top, req.Context().LegalConcerns) })
	run(func() { resp.CulturalTips = culturalTips(top) })
	run(func() { resp.PracticalInfo = practicalInfo(top) })
	run(func() { resp.SimilarDestinations = s.similar(gctx, top) })
	return g.Wait()
}

// confidence = 0.6 × mean similarity + 0.4 × top overall score, capped.
func confidence(hits []domcontent.Hit, top *destination.Destination) float64 {
	if len(hits) == 0 {
		return 0
	}
	mean := lo.SumBy(hits, func(h domcontent.Hit) float64 { return h.Similarity }) / float64(len(hits))
	return min(maxConfidence, 0.6*mean+0.4*top.Quality.Metrics.Overall)
}

func warnings(top *destination.Destination, demo, lexical bool) []string {
	var out []string
	if demo {
		out = append(out, demoWarning)
	} else if lexical {
		out = append(out, "Semantic search unavailable; results use text matching")
	}
	if top.Quality.Metrics.Overall < lowDataQuality {
		out = append(out, fmt.Sprintf("Data quality for %s is limited (%.0f%%); verify details locally",
			top.Name, top.Quality.Metrics.Overall*100))
	}
	if top.SafetyRating < lowSafety {
		out = append(out, fmt.Sprintf("%s has a low safety rating (%.1f/10); review travel advisories",
			top.Name, top.SafetyRating))
	}
	if top.HasSeverePenalty() {
		out = append(out, fmt.Sprintf("%s enforces laws with severe penalties; read the legal alerts", top.Name))
	}
	return out
}
