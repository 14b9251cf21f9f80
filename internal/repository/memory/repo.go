// Package memory is an in-process content repository with brute-force cosine
// search. It backs tests and the "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
)

// Repo keeps records in a map keyed by content type and content id.
type Repo struct {
	dim int

	mu      sync.RWMutex
	records map[string]domcontent.Record
}

// New creates an empty repository for vectors of the given dimension.
func New(dim int) *Repo {
	return &Repo{dim: dim, records: make(map[string]domcontent.Record)}
}

// Dimensions returns the store-wide embedding dimension.
func (r *Repo) Dimensions() int { return r.dim }

// EnsureIndex is a no-op.
func (r *Repo) EnsureIndex(context.Context) error { return nil }

// Save writes the record under its logical key, replacing any previous version.
func (r *Repo) Save(_ context.Context, rec *domcontent.Record) error {
	if len(rec.Embedding()) != r.dim {
		return fmt.Errorf("record %s has %d dims, store has %d: %w",
			rec.Key(), len(rec.Embedding()), r.dim, domain.ErrVectorDimMismatch)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Key()] = *rec
	return nil
}

// GetByKey returns the record identified by content type and content id.
func (r *Repo) GetByKey(_ context.Context, contentType, contentID string) (domcontent.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[domcontent.Key(contentType, contentID)]
	if !ok {
		return domcontent.Record{}, domain.ErrNotFound
	}
	return rec, nil
}

// Get returns the record with the given store id.
func (r *Repo) Get(_ context.Context, id string) (domcontent.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.ID() == id {
			return rec, nil
		}
	}
	return domcontent.Record{}, domain.ErrNotFound
}

// Delete removes the record identified by content type and content id.
func (r *Repo) Delete(_ context.Context, contentType, contentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, domcontent.Key(contentType, contentID))
	return nil
}

// SearchKNN returns the k nearest records with similarity scores, best first.
func (r *Repo) SearchKNN(
	_ context.Context, vector []float32, expr filter.Expression, k int,
) ([]domcontent.Hit, error) {
	if len(vector) != r.dim {
		return nil, fmt.Errorf("query has %d dims, store has %d: %w", len(vector), r.dim, domain.ErrVectorDimMismatch)
	}
	r.mu.RLock()
	hits := make([]domcontent.Hit, 0, len(r.records))
	for _, rec := range r.records {
		if !expr.Matches(rec.FilterFields()) {
			continue
		}
		hits = append(hits, domcontent.Hit{Record: rec, Similarity: cosine(vector, rec.Embedding())})
	}
	r.mu.RUnlock()

	slices.SortFunc(hits, func(a, b domcontent.Hit) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		return b.Record.UpdatedAt().Compare(a.Record.UpdatedAt())
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// List returns records matching expr, most recently updated first.
func (r *Repo) List(_ context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error) {
	return r.list(expr, limit, true), nil
}

// Oldest returns records matching expr, least recently updated first.
func (r *Repo) Oldest(_ context.Context, expr filter.Expression, limit int) ([]domcontent.Record, error) {
	return r.list(expr, limit, false), nil
}

// Count returns the number of stored records.
func (r *Repo) Count(context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *Repo) list(expr filter.Expression, limit int, newestFirst bool) []domcontent.Record {
	r.mu.RLock()
	out := make([]domcontent.Record, 0, len(r.records))
	for _, rec := range r.records {
		if expr.Matches(rec.FilterFields()) {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b domcontent.Record) int {
		c := a.UpdatedAt().Compare(b.UpdatedAt())
		if c == 0 {
			c = compareStrings(a.Key(), b.Key())
		}
		if newestFirst {
			return -c
		}
		return c
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// cosine returns cosine similarity clamped to [0,1], matching 1 - cosine distance on the Redis backend.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}
