package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	"github.com/kailas-cloud/tripwise/internal/domain/batch"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
	"github.com/kailas-cloud/tripwise/internal/metrics"
)

// Batch store defaults.
const (
	DefaultChunkSize  = 3
	DefaultChunkDelay = 500 * time.Millisecond
	// lexicalScanLimit bounds how many records the text fallback inspects.
	lexicalScanLimit = 1000
)

// Service persists content records with embeddings and answers similarity queries.
type Service struct {
	repo       Repository
	embed      Embedder
	chunkSize  int
	chunkDelay time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// New creates a vector store service.
func New(repo Repository, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		embed:      embed,
		chunkSize:  DefaultChunkSize,
		chunkDelay: DefaultChunkDelay,
		now:        time.Now,
		logger:     logger.With(zap.String("component", "vectorstore")),
	}
}

// WithChunking overrides batch chunk size and inter-chunk delay.
func (s *Service) WithChunking(size int, delay time.Duration) *Service {
	if size > 0 {
		s.chunkSize = size
	}
	if delay >= 0 {
		s.chunkDelay = delay
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Store embeds title+content and upserts the record under its logical key.
// Storing unchanged text reuses the existing vector and id.
func (s *Service) Store(ctx context.Context, rec domcontent.Record) (string, error) {
	prepared, needsEmbedding, err := s.prepare(ctx, rec)
	if err != nil {
		return "", err
	}
	if needsEmbedding {
		res, err := s.embed.Embed(ctx, prepared.EmbeddingText(), domain.TaskDocument)
		if err != nil {
			return "", fmt.Errorf("embed %s: %w", rec.Key(), err)
		}
		prepared = prepared.WithEmbedding(res.Embedding)
	}
	if err := s.save(ctx, &prepared); err != nil {
		return "", err
	}
	return prepared.ID(), nil
}

// BatchStore stores records in small chunks with a pause between chunks.
// A failing item yields an error result with an empty id; the batch continues.
func (s *Service) BatchStore(ctx context.Context, recs []domcontent.Record) []batch.Result {
	results := make([]batch.Result, len(recs))
	for start := 0; start < len(recs); start += s.chunkSize {
		if start > 0 && s.chunkDelay > 0 {
			if err := sleep(ctx, s.chunkDelay); err != nil {
				for i := start; i < len(recs); i++ {
					results[i] = batch.NewError(recs[i].Key(), err)
				}
				return results
			}
		}
		end := min(start+s.chunkSize, len(recs))
		s.storeChunk(ctx, recs[start:end], results[start:end])
	}
	if failed := batch.Failed(results); failed > 0 {
		s.logger.Warn("Batch store finished with failures", zap.Int("total", len(recs)), zap.Int("failed", failed))
	}
	return results
}

func (s *Service) storeChunk(ctx context.Context, recs []domcontent.Record, out []batch.Result) {
	prepared := make([]domcontent.Record, len(recs))
	var texts []string
	var pos []int
	for i, rec := range recs {
		p, needs, err := s.prepare(ctx, rec)
		if err != nil {
			out[i] = batch.NewError(rec.Key(), err)
			continue
		}
		prepared[i] = p
		if needs {
			texts = append(texts, p.EmbeddingText())
			pos = append(pos, i)
		}
	}

	if len(texts) > 0 {
		res, err := s.embed.BatchEmbed(ctx, texts, domain.TaskDocument)
		for j, i := range pos {
			switch {
			case err != nil:
				out[i] = batch.NewError(recs[i].Key(), fmt.Errorf("embed: %w", err))
			case j < len(res.Errs) && res.Errs[j] != nil:
				out[i] = batch.NewError(recs[i].Key(), fmt.Errorf("embed: %w", res.Errs[j]))
			case j >= len(res.Embeddings) || len(res.Embeddings[j]) == 0:
				out[i] = batch.NewError(recs[i].Key(), domain.ErrEmptyEmbedding)
			default:
				prepared[i] = prepared[i].WithEmbedding(res.Embeddings[j])
			}
		}
	}

	for i := range recs {
		if out[i].Status() == batch.StatusError {
			continue
		}
		if err := s.save(ctx, &prepared[i]); err != nil {
			out[i] = batch.NewError(recs[i].Key(), err)
			continue
		}
		out[i] = batch.NewOK(recs[i].Key(), prepared[i].ID())
	}
}

// prepare assigns identity and decides whether the record must be re-embedded.
func (s *Service) prepare(ctx context.Context, rec domcontent.Record) (domcontent.Record, bool, error) {
	now := s.now().UTC()
	existing, err := s.repo.GetByKey(ctx, rec.ContentType(), rec.ContentID())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return rec.WithIdentity(ulid.Make().String(), now, now), true, nil
	case err != nil:
		return domcontent.Record{}, false, fmt.Errorf("lookup %s: %w: %w", rec.Key(), domain.ErrPersistence, err)
	}

	rec = rec.WithIdentity(existing.ID(), existing.CreatedAt(), now)
	if rec.SameText(&existing) && len(existing.Embedding()) == s.repo.Dimensions() {
		return rec.WithEmbedding(existing.Embedding()), false, nil
	}
	return rec, true, nil
}

func (s *Service) save(ctx context.Context, rec *domcontent.Record) error {
	if err := s.repo.Save(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			return fmt.Errorf("save %s: %w", rec.Key(), err)
		}
		return fmt.Errorf("save %s: %w: %w", rec.Key(), domain.ErrPersistence, err)
	}
	return nil
}

// Query describes a similarity search.
type Query struct {
	Text      string
	Filters   filter.Expression
	Limit     int
	Threshold float64
}

// SearchSimilar ranks records by similarity to the query text.
// When the embedding provider or the vector index is unavailable it falls back
// to case-insensitive text matching; hits keep the same shape with Lexical set.
// It never returns an error: the worst case is an empty, non-nil slice.
func (s *Service) SearchSimilar(ctx context.Context, q Query) []domcontent.Hit {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	res, err := s.embed.Embed(ctx, q.Text, domain.TaskQuery)
	if err != nil {
		reason := "embedding_error"
		if errors.Is(err, domain.ErrUnconfigured) {
			reason = "unconfigured"
		}
		return s.lexical(ctx, q, reason, err)
	}

	hits, err := s.repo.SearchKNN(ctx, res.Embedding, q.Filters, q.Limit)
	if err != nil {
		return s.lexical(ctx, q, "search_error", err)
	}

	out := make([]domcontent.Hit, 0, len(hits))
	for _, h := range hits {
		if h.Similarity >= q.Threshold {
			out = append(out, h)
		}
	}
	sortHits(out)
	return out
}

func (s *Service) lexical(ctx context.Context, q Query, reason string, cause error) []domcontent.Hit {
	metrics.VectorSearchFallbackTotal.WithLabelValues(reason).Inc()
	if reason != "unconfigured" {
		s.logger.Warn("Vector search unavailable, using text match", zap.String("reason", reason), zap.Error(cause))
	}

	recs, err := s.repo.List(ctx, q.Filters, lexicalScanLimit)
	if err != nil {
		s.logger.Warn("Text match fallback failed", zap.Error(err))
		return []domcontent.Hit{}
	}

	out := make([]domcontent.Hit, 0, q.Limit)
	for _, r := range recs {
		score := lexicalScore(q.Text, r.Title(), r.Content())
		if score == 0 || score < q.Threshold {
			continue
		}
		out = append(out, domcontent.Hit{Record: r, Similarity: score, Lexical: true})
	}
	sortHits(out)
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// sortHits orders by similarity descending, then most recent, then key.
func sortHits(hits []domcontent.Hit) {
	slices.SortStableFunc(hits, func(a, b domcontent.Hit) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		if c := b.Record.UpdatedAt().Compare(a.Record.UpdatedAt()); c != 0 {
			return c
		}
		return strings.Compare(a.Record.Key(), b.Record.Key())
	})
}

// Update applies a partial change. Text changes trigger re-embedding; metadata-only
// changes keep the stored vector.
func (s *Service) Update(ctx context.Context, id string, p domcontent.Patch) (domcontent.Record, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	if p.IsEmpty() {
		return existing, nil
	}

	updated, changed := existing.Apply(p)
	if !changed && maps.Equal(updated.Metadata(), existing.Metadata()) {
		return existing, nil
	}
	updated = updated.WithIdentity(existing.ID(), existing.CreatedAt(), s.now().UTC())
	if changed {
		res, err := s.embed.Embed(ctx, updated.EmbeddingText(), domain.TaskDocument)
		if err != nil {
			return domcontent.Record{}, fmt.Errorf("re-embed %s: %w", id, err)
		}
		updated = updated.WithEmbedding(res.Embedding)
	}
	if err := s.save(ctx, &updated); err != nil {
		return domcontent.Record{}, err
	}
	return updated, nil
}

// Get returns a record by store id.
func (s *Service) Get(ctx context.Context, id string) (domcontent.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("get %s: %w", id, err)
	}
	return rec, nil
}

// GetByKey returns a record by content type and content id.
func (s *Service) GetByKey(ctx context.Context, contentType, contentID string) (domcontent.Record, error) {
	rec, err := s.repo.GetByKey(ctx, contentType, contentID)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("get %s: %w", domcontent.Key(contentType, contentID), err)
	}
	return rec, nil
}

// Oldest returns up to limit records matching expr, least recently updated first.
func (s *Service) Oldest(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error) {
	recs, err := s.repo.Oldest(ctx, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("oldest: %w: %w", domain.ErrPersistence, err)
	}
	return recs, nil
}

// List returns up to limit records matching expr, most recently updated first.
func (s *Service) List(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error) {
	recs, err := s.repo.List(ctx, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("list: %w: %w", domain.ErrPersistence, err)
	}
	return recs, nil
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w: %w", domain.ErrPersistence, err)
	}
	return n, nil
}

// EnsureIndex creates the search index when missing.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if err := s.repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Configured reports whether the embedding provider has a credential.
func (s *Service) Configured() bool {
	return domain.IsConfigured(s.embed)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck // context error
	case <-t.C:
		return nil
	}
}
