package destination

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	domdest "github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
)

// Result is a stored (or gated) destination with its assessment.
type Result struct {
	Destination domdest.Destination `json:"destination"`
	Assessment  quality.Assessment  `json:"assessment"`
	RecordID    string              `json:"recordId,omitempty"`
	Stored      bool                `json:"stored"`
}

// Service adds and refreshes destinations: acquire, score, store.
type Service struct {
	acq     Acquirer
	scorer  Scorer
	records Records
	logger  *zap.Logger
}

// New creates a destination service.
func New(acq Acquirer, scorer Scorer, records Records, logger *zap.Logger) *Service {
	return &Service{
		acq:     acq,
		scorer:  scorer,
		records: records,
		logger:  logger.With(zap.String("component", "destination")),
	}
}

// Add acquires and stores a destination regardless of its score.
func (s *Service) Add(ctx context.Context, name, country string) (Result, error) {
	return s.add(ctx, name, country, false)
}

// Expand acquires a destination and stores it only when it clears the quality gate.
func (s *Service) Expand(ctx context.Context, name, country string) (Result, error) {
	return s.add(ctx, name, country, true)
}

func (s *Service) add(ctx context.Context, name, country string, gated bool) (Result, error) {
	name, country = strings.TrimSpace(name), strings.TrimSpace(country)
	if name == "" {
		return Result{}, fmt.Errorf("destination name is required: %w", domain.ErrInvalidInput)
	}
	if domdest.Slug(name, country) == "" {
		return Result{}, fmt.Errorf("destination %q has no usable id: %w", name, domain.ErrInvalidInput)
	}

	d := s.acq.Acquire(ctx, name, country)
	a, ok := s.scorer.Passes(&d)
	res := Result{Destination: d, Assessment: a}
	if gated && !ok {
		s.logger.Info("Destination below quality gate",
			zap.String("destination", d.ID),
			zap.Float64("score", a.Score),
			zap.Strings("issues", a.Messages()),
		)
		return res, nil
	}

	id, err := s.acq.StoreInKnowledgeBase(ctx, d)
	if err != nil {
		return Result{}, fmt.Errorf("add %s: %w", d.ID, err)
	}
	res.RecordID, res.Stored = id, true
	return res, nil
}

// Update re-acquires a stored destination, keeping its id and bumping its version.
func (s *Service) Update(ctx context.Context, id string) (Result, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}

	d := s.acq.Acquire(ctx, existing.Name, existing.Country)
	d.ID = existing.ID
	d.Quality.Version = existing.Quality.Version + 1
	if v, ok := s.scorer.UserValidation(ctx, id); ok {
		d.Quality.Metrics = d.Quality.Metrics.WithUserValidation(v)
	}

	a, _ := s.scorer.Passes(&d)
	recordID, err := s.acq.StoreInKnowledgeBase(ctx, d)
	if err != nil {
		return Result{}, fmt.Errorf("update %s: %w", id, err)
	}
	return Result{Destination: d, Assessment: a, RecordID: recordID, Stored: true}, nil
}

// Get materializes a stored destination by id.
func (s *Service) Get(ctx context.Context, id string) (domdest.Destination, error) {
	if id == "" {
		return domdest.Destination{}, fmt.Errorf("destination id is required: %w", domain.ErrInvalidInput)
	}
	rec, err := s.records.GetByKey(ctx, domcontent.TypeDestination, id)
	if err != nil {
		return domdest.Destination{}, fmt.Errorf("get destination %s: %w", id, err)
	}
	d, _ := domdest.FromRecord(&rec)
	return d, nil
}

// Exists reports whether a destination is already stored.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.records.GetByKey(ctx, domcontent.TypeDestination, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup %s: %w", id, err)
	}
}
