package qdrant

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"druglookup/internal/domain"
)

func TestToPointAndBack(t *testing.T) {
	doc := domain.Document{
		ID:       "5b1e3e2a-0c5e-5d3f-9f59-3f0f5d1c3a11",
		Content:  "Active Ingredients: A\nInactive Ingredients: B",
		DrugName: "Tylenol",
	}
	meta := domain.IndexMeta{Embedder: "azure", Dimension: 2, Digest: "f00d"}
	p := toPoint(doc, []float64{0.5, 0.25}, meta)

	assert.Equal(t, doc.ID, p.GetId().GetUuid())
	assert.Equal(t, []float32{0.5, 0.25}, p.GetVectors().GetVector().GetData())

	scored := &pb.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: 0.75}
	got := fromScored(scored)
	assert.Equal(t, doc, got.Document)
	assert.InDelta(t, 0.75, got.Score, 1e-9)
	assert.Equal(t, meta, metaFromPayload(p.GetPayload()))
}

func TestFromScored_MissingPayload(t *testing.T) {
	got := fromScored(&pb.ScoredPoint{})
	assert.Empty(t, got.Document.Content)
	assert.Empty(t, got.Document.DrugName)
	assert.Zero(t, metaFromPayload(nil))
}

func TestNewStorage(t *testing.T) {
	_, err := NewStorage(Config{Addr: "localhost:6334"})
	assert.Error(t, err)

	s, err := NewStorage(Config{Addr: "localhost:6334", Collection: "drugs"})
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
