// Package knowledge persists embedded knowledge chunks and serves
// nearest-neighbor retrieval over them.
package knowledge

// Chunk is a bounded-length segment of ingested source text, embedded and
// indexed independently. Chunks are immutable once written.
type Chunk struct {
	SourceID  string
	Seq       int
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// ScoredChunk is a retrieval result with its similarity score.
type ScoredChunk struct {
	Chunk
	Similarity float32
}
