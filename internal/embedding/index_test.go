package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Degenerate inputs score zero instead of erroring.
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, Cosine(nil, nil))
}

func TestTopKOrdering(t *testing.T) {
	ix := NewIndex([]Entry{
		{Path: "a.go", Embedding: []float32{0, 1}},
		{Path: "b.go", Embedding: []float32{1, 0}},
		{Path: "c.go", Embedding: []float32{1, 1}},
	})

	hits := ix.TopK([]float32{1, 0}, 2)
	require.Len(t, hits, 2)
	assert.Equal(t, "b.go", hits[0].Path)
	assert.Equal(t, "c.go", hits[1].Path)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestTopKStableTies(t *testing.T) {
	ix := NewIndex([]Entry{
		{Path: "first.go", Embedding: []float32{1, 0}},
		{Path: "second.go", Embedding: []float32{2, 0}},
		{Path: "third.go", Embedding: []float32{3, 0}},
	})

	// All three are perfectly aligned with the query; insertion order wins.
	hits := ix.TopK([]float32{1, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, "first.go", hits[0].Path)
	assert.Equal(t, "second.go", hits[1].Path)
	assert.Equal(t, "third.go", hits[2].Path)
}

func TestTopKClamp(t *testing.T) {
	ix := NewIndex([]Entry{
		{Path: "a.go", Embedding: []float32{1, 0}},
		{Path: "b.go", Embedding: []float32{0, 1}},
	})

	assert.Len(t, ix.TopK([]float32{1, 0}, 10), 2)
	assert.Nil(t, ix.TopK([]float32{1, 0}, 0))
	assert.Nil(t, ix.TopK([]float32{1, 0}, -1))
	assert.Nil(t, NewIndex(nil).TopK([]float32{1, 0}, 5))
}

func TestFilesCountsDistinctPaths(t *testing.T) {
	ix := NewIndex([]Entry{
		{Path: "a.go", ChunkIndex: 0},
		{Path: "a.go", ChunkIndex: 1},
		{Path: "b.go", ChunkIndex: 0},
	})
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 2, ix.Files())
}
