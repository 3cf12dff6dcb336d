package embedding

import (
	"math"
	"sort"
)

// Entry is one indexed chunk held in memory.
type Entry struct {
	Path       string
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// Index is an immutable in-memory snapshot of the embedding index for one
// repository root. Once built it is only read, so no locking is needed.
type Index struct {
	entries []Entry
}

// NewIndex wraps the given entries. The caller must not mutate them afterward.
func NewIndex(entries []Entry) *Index {
	return &Index{entries: entries}
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.entries) }

// Files returns the number of distinct paths in the index.
func (ix *Index) Files() int {
	paths := make(map[string]struct{}, len(ix.entries))
	for _, e := range ix.entries {
		paths[e.Path] = struct{}{}
	}
	return len(paths)
}

// Scored pairs an entry with its similarity to a query.
type Scored struct {
	Entry
	Score float64
}

// TopK scores every entry against the query vector and returns the k best in
// non-increasing similarity order. Ties keep the entries' original order; a
// k at or above the index size returns the whole index ranked.
func (ix *Index) TopK(query []float32, k int) []Scored {
	if len(ix.entries) == 0 || k <= 0 {
		return nil
	}

	scored := make([]Scored, len(ix.entries))
	for i, e := range ix.entries {
		scored[i] = Scored{Entry: e, Score: Cosine(query, e.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}

// Cosine returns the cosine similarity of two vectors, or 0 when either has
// zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
