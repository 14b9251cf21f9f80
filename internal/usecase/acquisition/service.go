package acquisition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/destination"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/source"
	"github.com/kailas-cloud/tripwise/internal/metrics"
	"github.com/kailas-cloud/tripwise/internal/usecase/genai"
)

// DefaultSourceTimeout bounds a single source call.
const DefaultSourceTimeout = 8 * time.Second

// aiReliability is the reliability credited to model-synthesized content.
const aiReliability = 0.6

// Service is the data acquisition engine.
type Service struct {
	sources []Source
	gen     Generator
	kb      KnowledgeBase
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// New creates an acquisition engine. A non-positive timeout uses DefaultSourceTimeout.
func New(sources []Source, gen Generator, kb KnowledgeBase, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Service{
		sources: sources,
		gen:     gen,
		kb:      kb,
		timeout: timeout,
		now:     time.Now,
		logger:  logger.With(zap.String("component", "acquisition")),
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// FetchSources queries every source concurrently and waits for all of them.
// A failing or slow source is recorded in Failures and never blocks the rest.
func (s *Service) FetchSources(ctx context.Context, city, country string) source.Raw {
	fragments := make([]*source.Fragment, len(s.sources))
	var mu sync.Mutex
	failures := make(map[string]string)

	var g errgroup.Group
	for i, src := range s.sources {
		g.Go(func() error {
			frag, err := s.fetchOne(ctx, src, city, country)
			if err != nil {
				mu.Lock()
				failures[src.Name()] = err.Error()
				mu.Unlock()
				return nil
			}
			fragments[i] = &frag
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	ok := make([]source.Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f != nil {
			ok = append(ok, *f)
		}
	}
	raw := source.Consolidate(city, country, ok, failures)
	s.logger.Info("Sources fetched",
		zap.String("city", city),
		zap.Int("answered", len(ok)),
		zap.Int("failed", len(failures)),
	)
	return raw
}

func (s *Service) fetchOne(ctx context.Context, src Source, city, country string) (source.Fragment, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	frag, err := src.Fetch(callCtx, city, country)
	metrics.SourceFetchDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.SourceFetchTotal.WithLabelValues(src.Name(), "ok").Inc()
		return frag, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		metrics.SourceFetchTotal.WithLabelValues(src.Name(), "timeout").Inc()
		err = fmt.Errorf("%s timed out after %s: %w", src.Name(), s.timeout, domain.ErrSourceUnavailable)
	default:
		metrics.SourceFetchTotal.WithLabelValues(src.Name(), "error").Inc()
	}
	s.logger.Warn("Source fetch failed",
		zap.String("source", src.Name()),
		zap.String("city", city),
		zap.Error(err),
	)
	return source.Fragment{}, err
}

// Enrich asks the provider chain for a structured record built from raw.
// It never fails: unusable output degrades to a minimal record assembled from
// the raw fields with documented defaults.
func (s *Service) Enrich(ctx context.Context, raw source.Raw) destination.Destination {
	res := s.gen.Run(ctx, genai.Task{
		Name: "enrich",
		Completion: domain.Completion{
			System:      enrichSystem,
			Prompt:      enrichPrompt(raw),
			JSON:        true,
			MaxTokens:   3000,
			Temperature: 0.2,
		},
		Validate: func(obj string) error {
			_, err := destination.Decode([]byte(obj))
			return err //nolint:wrapcheck // chain wraps validation errors
		},
	})

	now := s.now().UTC()
	var d destination.Destination
	generated := false
	if !res.Fallback {
		if dec, err := destination.Decode([]byte(res.Text)); err == nil {
			d, generated = dec, true
		}
	}
	if !generated {
		metrics.EnrichmentTotal.WithLabelValues("fallback").Inc()
		s.logger.Warn("Enrichment fell back to raw data", zap.String("city", raw.City))
		d = minimalRecord(raw)
	} else {
		metrics.EnrichmentTotal.WithLabelValues("generated").Inc()
	}

	s.reconcile(&d, raw, now, generated, res.Provider)
	return d
}

// Acquire fetches sources for a city and enriches them into a destination.
func (s *Service) Acquire(ctx context.Context, city, country string) destination.Destination {
	return s.Enrich(ctx, s.FetchSources(ctx, city, country))
}

// reconcile lets source facts win over model output for identity fields and
// records provenance and quality.
func (s *Service) reconcile(d *destination.Destination, raw source.Raw, now time.Time, generated bool, provider string) {
	if d.Name == "" {
		d.Name = raw.City
	}
	if raw.Country != "" && (d.Country == "" || !generated) {
		d.Country = raw.Country
	}
	if d.Region == "" {
		d.Region = raw.Region()
	}
	if c, ok := raw.Coordinates(); ok {
		d.Coordinates = c
	}
	if d.Description == "" {
		d.Description = raw.Summary()
	}
	d.ID = destinationID(raw, d)

	sources := raw.Sources()
	reliability := raw.MeanReliability()
	if generated {
		sources = append(sources, source.DataSource{
			Name:        provider,
			Type:        source.TypeAI,
			LastFetched: now,
			Reliability: aiReliability,
		})
		reliability = (reliability*float64(len(raw.Fragments)) + aiReliability) / float64(len(raw.Fragments)+1)
	}
	d.Quality.Sources = sources
	d.Quality.LastUpdated = now
	d.Quality.Metrics = quality.DefaultMetrics().
		WithFreshness(1).
		WithSourceReliability(reliability)
	d.Normalize()
}

// destinationID keys a record by the city it was requested under, so a model
// that renames the city ("Delhi" -> "New Delhi") cannot fork the id.
func destinationID(raw source.Raw, d *destination.Destination) string {
	country := raw.Country
	if country == "" {
		country = d.Country
	}
	return destination.Slug(raw.City, country)
}

// minimalRecord builds a degraded but complete destination from raw fields.
func minimalRecord(raw source.Raw) destination.Destination {
	d := destination.Destination{
		Name:        raw.City,
		Country:     raw.Country,
		Region:      raw.Region(),
		Description: raw.Summary(),
	}
	if d.Description == "" {
		d.Description = fmt.Sprintf("%s is a travel destination; detailed information is pending.", raw.City)
	}
	if climate := raw.Fact("climate"); climate != "" {
		d.Climate.Summary = climate
	}
	if pay := raw.Fact("payment"); pay != "" {
		d.Economy.PaymentMethods = []string{pay}
	}
	if events := raw.Fact("events"); events != "" {
		d.Events = []destination.Event{{Name: events}}
	}
	d.ApplyConservativeDefaults()
	return d
}

// StoreInKnowledgeBase flattens d into prose and persists it with the
// structured record and provenance attached. Only persistence errors surface.
func (s *Service) StoreInKnowledgeBase(ctx context.Context, d destination.Destination) (string, error) {
	d.Normalize()
	if d.ID == "" {
		d.ID = destination.Slug(d.Name, d.Country)
	}
	encoded, err := destination.Encode(d)
	if err != nil {
		return "", err //nolint:wrapcheck // codec error names the destination
	}

	md := map[string]string{
		domcontent.MetaCountry:   strings.ToLower(d.Country),
		domcontent.MetaCostLevel: string(d.CostLevel),
		domcontent.MetaSource:    sourceNames(d.Quality.Sources),
		domcontent.MetaRecord:    string(encoded),
	}
	if d.Region != "" {
		md[domcontent.MetaRegion] = strings.ToLower(d.Region)
	}

	rec, err := domcontent.New(d.ID, domcontent.TypeDestination, d.Name, d.Prose(), md)
	if err != nil {
		return "", fmt.Errorf("build record for %s: %w: %w", d.Name, domain.ErrInvalidInput, err)
	}
	id, err := s.kb.Store(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", d.ID, err)
	}
	s.logger.Info("Destination stored",
		zap.String("destination", d.ID),
		zap.String("record_id", id),
		zap.Int("sources", len(d.Quality.Sources)),
	)
	return id, nil
}

func sourceNames(ds []source.DataSource) string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return strings.Join(names, ",")
}
