package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"druglookup/internal/domain"
	"druglookup/internal/vectorstore"
)

func TestStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	exists, err := s.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Init(ctx, domain.IndexMeta{Dimension: 2}))
	docs := []domain.Document{
		{ID: "a", DrugName: "A"},
		{ID: "b", DrugName: "B"},
		{ID: "c", DrugName: "C"},
	}
	require.NoError(t, s.Upsert(ctx, docs, [][]float64{{1, 0}, {0, 1}, {0.6, 0.8}}))

	exists, err = s.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	res, err := s.Search(ctx, []float64{0, 3}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "b", res[0].Document.ID)
	assert.Equal(t, "c", res[1].Document.ID)

	require.NoError(t, s.Clear(ctx))
	res, err = s.Search(ctx, []float64{0, 1}, 2)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestStorage_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, domain.IndexMeta{Dimension: 1}))
	require.NoError(t, s.Upsert(ctx, []domain.Document{{ID: "a", Content: "old"}}, [][]float64{{1}}))
	require.NoError(t, s.Upsert(ctx, []domain.Document{{ID: "a", Content: "new"}}, [][]float64{{1}}))

	res, err := s.Search(ctx, []float64{1}, 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "new", res[0].Document.Content)
}

func TestStorage_Validation(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()

	assert.Error(t, s.Init(ctx, domain.IndexMeta{Dimension: 0}))
	require.NoError(t, s.Init(ctx, domain.IndexMeta{Dimension: 2}))
	assert.Error(t, s.Upsert(ctx, []domain.Document{{ID: "a"}}, nil))
	assert.Error(t, s.Upsert(ctx, []domain.Document{{ID: "a"}}, [][]float64{{1, 2, 3}}))
}

func TestStorage_MetaAndDimensionCheck(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	meta := domain.IndexMeta{Embedder: "tfidf", Dimension: 2, Digest: "abc"}
	require.NoError(t, s.Init(ctx, meta))
	require.NoError(t, s.Upsert(ctx, []domain.Document{{ID: "a"}}, [][]float64{{1, 0}}))

	got, err := s.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	_, err = s.Search(ctx, []float64{1, 0, 0}, 1)
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)

	require.NoError(t, s.Clear(ctx))
	got, err = s.Meta(ctx)
	require.NoError(t, err)
	assert.Zero(t, got)
}
