package store

// Chunk is one slice of a file's text plus its embedding vector; the unit of
// retrieval. Chunks are ephemeral until persisted by Upsert, after which the
// store owns them.
type Chunk struct {
	Path       string
	ChunkIndex int
	Text       string
	Embedding  []float32
}

// SearchResult is a chunk with its similarity to a query embedding.
type SearchResult struct {
	Chunk      Chunk
	Similarity float64
}
