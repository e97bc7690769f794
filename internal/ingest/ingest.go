// Package ingest turns heterogeneous knowledge sources into embedded
// chunks ready for the similarity store.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/knowledge"
	"github.com/recallkit/recallkit/internal/observe"
	"github.com/recallkit/recallkit/internal/provider"
)

// Embedder is the slice of the provider surface the ingestor needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	embedAttempts = 3
	embedBackoff  = 200 * time.Millisecond
)

// Ingestor chunks and embeds knowledge sources.
type Ingestor struct {
	embedder Embedder
	obs      *observe.Observer
	chunk    ChunkOptions
	extract  ExtractOptions
}

// New creates an Ingestor. ocrDensity of zero keeps the default threshold.
func New(embedder Embedder, obs *observe.Observer, ocrDensity float64) *Ingestor {
	return &Ingestor{
		embedder: embedder,
		obs:      obs,
		chunk:    ChunkOptions{MaxSize: DefaultChunkSize},
		extract:  ExtractOptions{OCRDensity: ocrDensity},
	}
}

// Ingest extracts one source, splits it into chunks and embeds each one.
// The returned chunks preserve origin ordering via their sequence index.
func (ing *Ingestor) Ingest(ctx context.Context, src design.KnowledgeSource) ([]knowledge.Chunk, error) {
	text, err := Extract(src, ing.extract)
	if err != nil {
		return nil, fmt.Errorf("extract source %s: %w", src.ID, err)
	}

	pieces := Chunk(text, ing.chunk)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("source %s produced no text", src.ID)
	}

	chunks := make([]knowledge.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		vec, err := ing.embed(ctx, piece)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d of source %s: %w", i, src.ID, err)
		}

		chunks = append(chunks, knowledge.Chunk{
			SourceID:  src.ID,
			Seq:       i,
			Text:      piece,
			Embedding: vec,
			Metadata: map[string]string{
				"source_filename": filepath.Base(src.Path),
				"source_kind":     string(src.Kind),
			},
		})
	}

	ing.obs.Log().Info().Str("source", src.ID).Int("chunks", len(chunks)).Msg("source ingested")
	return chunks, nil
}

// embed retries transient embedding outages with backoff. Anything other
// than an upstream outage fails immediately.
func (ing *Ingestor) embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < embedAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(embedBackoff << (attempt - 1)):
			}
		}

		vec, err := ing.embedder.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !errors.Is(err, provider.ErrEmbeddingUnavailable) {
			return nil, err
		}
		ing.obs.Log().Warn().Int("attempt", attempt+1).Err(err).Msg("embedding retry")
	}
	return nil, lastErr
}
