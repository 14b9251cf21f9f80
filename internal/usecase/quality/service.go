package quality

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
)

// reportScanLimit bounds how many records a report inspects.
const reportScanLimit = 10000

// Service is the quality assurance system.
type Service struct {
	feedback  FeedbackStore
	corpus    Corpus
	threshold float64
	now       func() time.Time
	logger    *zap.Logger
}

// New creates a quality service. A non-positive threshold uses DefaultGateThreshold.
func New(feedback FeedbackStore, corpus Corpus, threshold float64, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultGateThreshold
	}
	return &Service{
		feedback:  feedback,
		corpus:    corpus,
		threshold: threshold,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "quality")),
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Threshold returns the corpus-expansion gate.
func (s *Service) Threshold() float64 { return s.threshold }

// Score rates d at the current time.
func (s *Service) Score(d *destination.Destination) quality.Assessment {
	return Score(d, s.now())
}

// Passes reports whether d clears the expansion gate.
func (s *Service) Passes(d *destination.Destination) (quality.Assessment, bool) {
	a := s.Score(d)
	return a, a.Passes(s.threshold)
}

// SubmitFeedback validates and appends one rating.
func (s *Service) SubmitFeedback(
	ctx context.Context, destinationID string, rating int, category quality.Category, comment string,
) (quality.Feedback, error) {
	f, err := quality.NewFeedback(destinationID, rating, category, comment)
	if err != nil {
		return quality.Feedback{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	saved, err := s.feedback.Append(ctx, f)
	if err != nil {
		if errors.Is(err, domain.ErrPersistence) {
			return quality.Feedback{}, fmt.Errorf("submit feedback: %w", err)
		}
		return quality.Feedback{}, fmt.Errorf("submit feedback: %w: %w", domain.ErrPersistence, err)
	}
	return saved, nil
}

// FeedbackSummary returns mean ratings for a destination.
func (s *Service) FeedbackSummary(ctx context.Context, destinationID string) (quality.Summary, error) {
	if destinationID == "" {
		return quality.Summary{}, fmt.Errorf("destination id is required: %w", domain.ErrInvalidInput)
	}
	sum, err := s.feedback.Summary(ctx, destinationID)
	if err != nil {
		return quality.Summary{}, fmt.Errorf("feedback summary: %w: %w", domain.ErrPersistence, err)
	}
	return sum, nil
}

// UserValidation maps a destination's feedback onto the user validation
// dimension. ok is false when nobody rated it yet.
func (s *Service) UserValidation(ctx context.Context, destinationID string) (score float64, ok bool) {
	sum, err := s.feedback.Summary(ctx, destinationID)
	if err != nil {
		s.logger.Warn("Feedback lookup failed", zap.String("destination", destinationID), zap.Error(err))
		return 0, false
	}
	if sum.Count == 0 {
		return 0, false
	}
	return quality.ValidationScore(sum.Overall), true
}

// GenerateReport aggregates quality over every destination in the corpus.
func (s *Service) GenerateReport(ctx context.Context) (quality.Report, error) {
	now := s.now().UTC()
	recs, err := s.corpus.List(ctx, filter.ContentTypes(domcontent.FieldContentType, domcontent.DestinationTypes...), reportScanLimit)
	if err != nil {
		return quality.Report{}, fmt.Errorf("list corpus: %w: %w", domain.ErrPersistence, err)
	}

	r := quality.Report{
		GeneratedAt:   now,
		TotalRecords:  len(recs),
		StaleIDs:      []string{},
		Flags:         []quality.Flag{},
		GateThreshold: s.threshold,
	}
	var sums quality.Metrics
	scoreSum := 0.0
	for i := range recs {
		d, _ := destination.FromRecord(&recs[i])
		a := Score(&d, now)
		if a.Valid {
			r.ValidRecords++
		}
		if !a.Passes(s.threshold) {
			r.BelowGate++
		}
		scoreSum += a.Score
		if r.Freshness.Bucket(d.Age(now)) == "stale" {
			r.StaleIDs = append(r.StaleIDs, d.ID)
		}
		m := d.Quality.Metrics
		sums.Freshness += m.Freshness
		sums.SourceReliability += m.SourceReliability
		sums.UserValidation += m.UserValidation
		sums.ExpertReview += m.ExpertReview
		sums.CrossReference += m.CrossReference
	}
	if n := float64(len(recs)); n > 0 {
		r.Averages = quality.NewMetrics(
			sums.Freshness/n, sums.SourceReliability/n, sums.UserValidation/n,
			sums.ExpertReview/n, sums.CrossReference/n,
		)
		r.AverageScore = scoreSum / n
	}

	dist, err := s.feedback.Distribution(ctx)
	if err != nil {
		return quality.Report{}, fmt.Errorf("feedback distribution: %w: %w", domain.ErrPersistence, err)
	}
	r.Satisfaction = dist
	total := 0
	for rating, n := range dist {
		r.FeedbackCount += n
		total += rating * n
	}
	if r.FeedbackCount > 0 {
		r.AverageRating = float64(total) / float64(r.FeedbackCount)
	}

	r.Flags = flags(&r)
	for _, f := range r.Flags {
		if f.Priority == quality.PriorityCritical {
			r.HasCriticalFlags = true
		}
	}
	return r, nil
}

// Flag thresholds.
const (
	criticalOverall      = 0.5
	criticalSatisfaction = 3.0
	highReliability      = 0.5
)

func flags(r *quality.Report) []quality.Flag {
	out := []quality.Flag{}
	if r.TotalRecords > 0 && r.Averages.Overall < criticalOverall {
		out = append(out, quality.Flag{
			Priority: quality.PriorityCritical,
			Issue:    fmt.Sprintf("average overall quality is %.2f", r.Averages.Overall),
			Action:   "Re-run enrichment for low scoring destinations",
		})
	}
	if r.FeedbackCount > 0 && r.AverageRating < criticalSatisfaction {
		out = append(out, quality.Flag{
			Priority: quality.PriorityCritical,
			Issue:    fmt.Sprintf("user satisfaction is %.2f/5", r.AverageRating),
			Action:   "Review feedback comments and correct reported inaccuracies",
		})
	}
	fresh := r.Freshness
	if fresh.Stale > 0 && fresh.Stale > 2*(fresh.Recent+fresh.Current) {
		out = append(out, quality.Flag{
			Priority: quality.PriorityCritical,
			Issue:    fmt.Sprintf("%d of %d records are stale", fresh.Stale, r.TotalRecords),
			Action:   "Increase the pipeline update batch size or frequency",
		})
	}
	if r.TotalRecords > 0 && r.Averages.SourceReliability < highReliability {
		out = append(out, quality.Flag{
			Priority: quality.PriorityHigh,
			Issue:    fmt.Sprintf("average source reliability is %.2f", r.Averages.SourceReliability),
			Action:   "Add authoritative sources for affected destinations",
		})
	}
	return out
}
