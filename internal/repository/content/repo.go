package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/tripwise/internal/db"
	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
)

// scanLimit bounds listing reads used by the lexical fallback and staleness scans.
const scanLimit = 1000

// store is the consumer interface for content records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo stores content records as Redis hashes under one FT index.
type Repo struct {
	store  store
	prefix string
	dim    int
	hnsw   HNSWConfig
}

// New creates a content repository. prefix is the global key prefix (e.g. "tripwise:").
func New(s store, prefix string, dim int, hnsw HNSWConfig) *Repo {
	return &Repo{store: s, prefix: prefix, dim: dim, hnsw: hnsw}
}

// Dimensions returns the store-wide embedding dimension.
func (r *Repo) Dimensions() int { return r.dim }

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}
	def, err := buildIndex(r.indexName(), r.keyPrefix(), r.dim, r.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Save writes the record under its logical key, replacing any previous version.
func (r *Repo) Save(ctx context.Context, rec *domcontent.Record) error {
	if len(rec.Embedding()) != r.dim {
		return fmt.Errorf("record %s has %d dims, store has %d: %w",
			rec.Key(), len(rec.Embedding()), r.dim, domain.ErrVectorDimMismatch)
	}
	fields, err := buildHashFields(rec)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.key(rec.ContentType(), rec.ContentID()), fields); err != nil {
		return fmt.Errorf("hset %s: %w", rec.Key(), err)
	}
	return nil
}

// GetByKey returns the record identified by content type and content id.
func (r *Repo) GetByKey(ctx context.Context, contentType, contentID string) (domcontent.Record, error) {
	key := r.key(contentType, contentID)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domcontent.Record{}, domain.ErrNotFound
	}
	return parseHashFields(m)
}

// Get returns the record with the given store id.
func (r *Repo) Get(ctx context.Context, id string) (domcontent.Record, error) {
	cond, err := filter.NewMatch(fieldID, id)
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName: r.indexName(),
		Filters:   filter.Expression{}.And(cond),
		Limit:     1,
	})
	if err != nil {
		return domcontent.Record{}, fmt.Errorf("search id %s: %w", id, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return domcontent.Record{}, domain.ErrNotFound
	}
	return parseHashFields(res.Entries[0].Fields)
}

// Delete removes the record identified by content type and content id.
func (r *Repo) Delete(ctx context.Context, contentType, contentID string) error {
	if err := r.store.Del(ctx, r.key(contentType, contentID)); err != nil {
		return fmt.Errorf("del %s: %w", domcontent.Key(contentType, contentID), err)
	}
	return nil
}

// SearchKNN returns the k nearest records with similarity scores, best first.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, expr filter.Expression, k int,
) ([]domcontent.Hit, error) {
	if len(vector) != r.dim {
		return nil, fmt.Errorf("query has %d dims, store has %d: %w", len(vector), r.dim, domain.ErrVectorDimMismatch)
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Filters:      expr,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}
	hits := make([]domcontent.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		rec, err := parseHashFields(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Key, err)
		}
		hits = append(hits, domcontent.Hit{Record: rec, Similarity: e.Score})
	}
	return hits, nil
}

// List returns records matching expr, most recently updated first.
func (r *Repo) List(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error) {
	return r.list(ctx, expr, limit, true)
}

// Oldest returns records matching expr, least recently updated first.
func (r *Repo) Oldest(ctx context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error) {
	return r.list(ctx, expr, limit, false)
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

func (r *Repo) list(
	ctx context.Context, expr filter.Expression, limit int, newestFirst bool,
) ([]domcontent.Record, error) {
	if limit <= 0 || limit > scanLimit {
		limit = scanLimit
	}
	res, err := r.store.SearchList(ctx, &db.ListQuery{
		IndexName:    r.indexName(),
		Filters:      expr,
		SortBy:       fieldUpdatedAt,
		Descending:   newestFirst,
		Limit:        limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search list: %w", err)
	}
	if res == nil {
		return nil, nil
	}
	records := make([]domcontent.Record, 0, len(res.Entries))
	for _, e := range res.Entries {
		rec, err := parseHashFields(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Key, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *Repo) keyPrefix() string {
	return r.prefix + "content:"
}

func (r *Repo) key(contentType, contentID string) string {
	return r.keyPrefix() + domcontent.Key(contentType, contentID)
}

func (r *Repo) indexName() string {
	return r.prefix + "content:idx"
}
