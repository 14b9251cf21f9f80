package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domcontent "github.com/kailas-cloud/tripwise/internal/domain/content"
	"github.com/kailas-cloud/tripwise/internal/domain/search/filter"
)

var base = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

func record(t *testing.T, id, ctype, country string, vec []float32, updated time.Time) domcontent.Record {
	t.Helper()
	rec, err := domcontent.New(id, ctype, id, "body of "+id, map[string]string{"country": country})
	require.NoError(t, err)
	return rec.WithIdentity("id-"+id, base, updated).WithEmbedding(vec)
}

func TestSave_Idempotent(t *testing.T) {
	r := New(2)
	ctx := context.Background()
	rec := record(t, "goa", domcontent.TypeCity, "India", []float32{1, 0}, base)

	require.NoError(t, r.Save(ctx, &rec))
	require.NoError(t, r.Save(ctx, &rec))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := r.Get(ctx, "id-goa")
	require.NoError(t, err)
	assert.Equal(t, "goa", got.ContentID())
}

func TestSave_DimMismatch(t *testing.T) {
	r := New(3)
	rec := record(t, "goa", domcontent.TypeCity, "India", []float32{1, 0}, base)
	assert.ErrorIs(t, r.Save(context.Background(), &rec), domain.ErrVectorDimMismatch)
}

func TestGetByKey_NotFound(t *testing.T) {
	_, err := New(2).GetByKey(context.Background(), domcontent.TypeCity, "nowhere")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearchKNN_OrderAndTies(t *testing.T) {
	r := New(2)
	ctx := context.Background()
	recs := []domcontent.Record{
		record(t, "older", domcontent.TypeDestination, "India", []float32{1, 0}, base),
		record(t, "newer", domcontent.TypeDestination, "India", []float32{1, 0}, base.Add(time.Hour)),
		record(t, "far", domcontent.TypeDestination, "Peru", []float32{0, 1}, base),
		record(t, "guide", domcontent.TypeGuide, "India", []float32{1, 0}, base),
	}
	for i := range recs {
		require.NoError(t, r.Save(ctx, &recs[i]))
	}

	hits, err := r.SearchKNN(ctx, []float32{1, 0},
		filter.ContentTypes(domcontent.FieldContentType, domcontent.DestinationTypes...), 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "newer", hits[0].Record.ContentID())
	assert.Equal(t, "older", hits[1].Record.ContentID())
	assert.Equal(t, "far", hits[2].Record.ContentID())
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, hits[2].Similarity, 1e-9)
}

func TestSearchKNN_MustNot(t *testing.T) {
	r := New(2)
	ctx := context.Background()
	a := record(t, "a", domcontent.TypeDestination, "India", []float32{1, 0}, base)
	b := record(t, "b", domcontent.TypeDestination, "Nepal", []float32{1, 0}, base)
	require.NoError(t, r.Save(ctx, &a))
	require.NoError(t, r.Save(ctx, &b))

	india, err := filter.NewMatch("country", "india")
	require.NoError(t, err)
	expr, err := filter.NewExpression(nil, nil, []filter.Condition{india})
	require.NoError(t, err)

	hits, err := r.SearchKNN(ctx, []float32{1, 0}, expr, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Record.ContentID())
}

func TestOldestAndList(t *testing.T) {
	r := New(1)
	ctx := context.Background()
	for i, id := range []string{"x", "y", "z"} {
		rec := record(t, id, domcontent.TypeDestination, "India", []float32{1}, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, r.Save(ctx, &rec))
	}

	oldest, err := r.Oldest(ctx, filter.Expression{}, 2)
	require.NoError(t, err)
	require.Len(t, oldest, 2)
	assert.Equal(t, "x", oldest[0].ContentID())
	assert.Equal(t, "y", oldest[1].ContentID())

	newest, err := r.List(ctx, filter.Expression{}, 0)
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, "z", newest[0].ContentID())
}

func TestDelete(t *testing.T) {
	r := New(1)
	ctx := context.Background()
	rec := record(t, "x", domcontent.TypeCity, "India", []float32{1}, base)
	require.NoError(t, r.Save(ctx, &rec))
	require.NoError(t, r.Delete(ctx, domcontent.TypeCity, "x"))
	n, _ := r.Count(ctx)
	assert.Zero(t, n)
}
