package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "knowledge"

// MetricCosine and MetricDot select the ranking metric.
const (
	MetricCosine = "cosine"
	MetricDot    = "dot"
)

// Store is a persisted vector index over knowledge chunks, backed by
// chromem-go. The on-disk layout lives entirely under the directory given
// to Open, so a build directory stays independently portable.
type Store struct {
	db     *chromem.DB
	col    *chromem.Collection
	metric string

	mu        sync.Mutex
	nextOrder int
}

// Open opens (or creates) the index under dir. metric selects the ranking
// metric; empty means cosine.
func Open(dir, metric string) (*Store, error) {
	if metric == "" {
		metric = MetricCosine
	}
	if metric != MetricCosine && metric != MetricDot {
		return nil, fmt.Errorf("unknown similarity metric %q", metric)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}

	return &Store{
		db:        db,
		col:       col,
		metric:    metric,
		nextOrder: col.Count(),
	}, nil
}

// Upsert replaces every chunk belonging to the sources present in chunks
// and inserts the new ones. Re-running ingestion for an updated source
// therefore swaps only that source's chunks.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sources := make(map[string]bool)
	for _, c := range chunks {
		sources[c.SourceID] = true
	}
	for sourceID := range sources {
		err := s.col.Delete(ctx, map[string]string{"source_id": sourceID}, nil)
		if err != nil {
			return fmt.Errorf("delete chunks of source %s: %w", sourceID, err)
		}
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		meta := map[string]string{
			"source_id":   c.SourceID,
			"chunk_index": strconv.Itoa(c.Seq),
			"order":       strconv.Itoa(s.nextOrder),
		}
		for k, v := range c.Metadata {
			meta[k] = v
		}
		s.nextOrder++

		docs = append(docs, chromem.Document{
			ID:        fmt.Sprintf("%s/%d", c.SourceID, c.Seq),
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata:  meta,
		})
	}

	if err := s.col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	return nil
}

// Search returns the top-k chunks ranked by the configured metric,
// with ties broken by insertion order.
func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error) {
	count := s.col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}

	// Over-fetch so dot-product re-ranking and tie-breaking see enough
	// candidates; chromem itself ranks by cosine.
	fetch := k * 4
	if fetch > count {
		fetch = count
	}

	results, err := s.col.QueryEmbedding(ctx, vector, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	scored := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		sc := ScoredChunk{
			Chunk: Chunk{
				SourceID:  r.Metadata["source_id"],
				Text:      r.Content,
				Embedding: r.Embedding,
				Metadata:  r.Metadata,
			},
			Similarity: r.Similarity,
		}
		sc.Seq, _ = strconv.Atoi(r.Metadata["chunk_index"])
		if s.metric == MetricDot {
			sc.Similarity = dot(vector, r.Embedding)
		}
		scored = append(scored, sc)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		oi, _ := strconv.Atoi(scored[i].Metadata["order"])
		oj, _ := strconv.Atoi(scored[j].Metadata["order"])
		return oi < oj
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	return s.col.Count()
}

func dot(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
