// Package interaction logs past query/response pairs, the agent's
// evolving memory, and serves similarity retrieval with age-based
// retention over them.
package interaction

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks an unreachable interaction store. The engine
// degrades to knowledge-only context instead of failing the query.
var ErrUnavailable = errors.New("interaction store unavailable")

// Record is a logged query/response pair. Records are immutable after
// creation and removed only by the retention sweep.
type Record struct {
	QueryID   string
	Query     string
	Response  string
	Embedding []float32
	Timestamp time.Time
	Metadata  map[string]string
}

// Scored is a retrieval result with its similarity to the current query.
type Scored struct {
	Record
	Similarity float32
}

// Repository abstracts the interaction log so the engine never depends on
// a specific storage technology.
type Repository interface {
	// Insert appends a record. Records are never mutated afterwards.
	Insert(ctx context.Context, rec Record) error

	// SearchBySimilarity returns the top-limit records ranked by cosine
	// similarity to vector, excluding records older than maxAge.
	SearchBySimilarity(ctx context.Context, vector []float32, limit int, maxAge time.Duration) ([]Scored, error)

	// PruneOlderThan deletes records older than age and reports how many.
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	Close() error
}
