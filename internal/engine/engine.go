// Package engine orchestrates a query across the three memory tiers:
// ingested knowledge, dynamic context files and the interaction log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/interaction"
	"github.com/recallkit/recallkit/internal/knowledge"
	"github.com/recallkit/recallkit/internal/observe"
	"github.com/recallkit/recallkit/internal/provider"
)

// ErrGenerationFailed marks an unreachable or errored generation model.
// It is the only fatal condition of a query; there is no partial response.
var ErrGenerationFailed = errors.New("generation failed")

// DefaultRetrievalLimit is used when the memory policy leaves the limit unset.
const DefaultRetrievalLimit = 5

// Result is the outcome of a processed query.
type Result struct {
	Response  string    `json:"response"`
	QueryID   string    `json:"query_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine answers queries for one agent design. It holds no mutable
// per-request state, so a single Engine serves concurrent requests.
type Engine struct {
	design *design.Design
	know   *knowledge.Store
	repo   interaction.Repository
	prov   provider.Provider
	obs    *observe.Observer
}

// New creates an Engine. repo may be nil when the memory policy is disabled.
func New(d *design.Design, know *knowledge.Store, repo interaction.Repository, prov provider.Provider, obs *observe.Observer) *Engine {
	return &Engine{
		design: d,
		know:   know,
		repo:   repo,
		prov:   prov,
		obs:    obs,
	}
}

// ProcessQuery runs the full retrieval-and-generation pipeline for one
// query. Retrieval failures degrade to a smaller context; only a
// generation failure aborts the query. No retries are performed here;
// callers retry at the transport layer if desired.
func (e *Engine) ProcessQuery(ctx context.Context, queryText string) (*Result, error) {
	ctx, span := e.obs.StartSpan(ctx, "ProcessQuery")
	defer span.End()

	policy := e.design.MemoryPolicy
	limit := policy.RetrievalLimit
	if limit <= 0 {
		limit = DefaultRetrievalLimit
	}

	queryVec, err := e.prov.Embed(ctx, queryText)
	if err != nil {
		// Without a query embedding neither store can be searched; the
		// query still proceeds with dynamic context only.
		e.obs.Log().Warn().Err(err).Msg("query embedding failed, retrieval skipped")
		queryVec = nil
	}

	// Knowledge and interaction retrieval are both read-only and have no
	// ordering dependency, so they run in parallel. Prompt rendering is
	// the synchronization point.
	var (
		wg         sync.WaitGroup
		knowChunks []knowledge.ScoredChunk
		past       []interaction.Scored
	)

	if queryVec != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunks, err := e.know.Search(ctx, queryVec, limit)
			if err != nil {
				e.obs.Log().Warn().Err(err).Msg("knowledge retrieval failed, continuing without")
				return
			}
			knowChunks = chunks
		}()

		if policy.Enabled && e.repo != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				maxAge := time.Duration(policy.RetentionDays) * 24 * time.Hour
				recs, err := e.repo.SearchBySimilarity(ctx, queryVec, limit, maxAge)
				if err != nil {
					// Treated as "no memory context available".
					e.obs.Log().Warn().Err(err).Msg("interaction retrieval failed, continuing without")
					return
				}
				past = recs
			}()
		}
	}

	dynamic := e.readDynamicContext(e.design.DynamicSources())
	wg.Wait()

	prompt, err := e.renderPrompt(queryText, knowChunks, dynamic, past)
	if err != nil {
		return nil, err
	}

	resp, err := e.prov.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	result := &Result{
		Response:  resp.Content,
		QueryID:   uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}

	// Persistence failure never invalidates the already-generated response.
	if policy.Enabled && e.repo != nil {
		rec := interaction.Record{
			QueryID:   result.QueryID,
			Query:     queryText,
			Response:  result.Response,
			Embedding: queryVec,
			Timestamp: result.Timestamp,
			Metadata:  map[string]string{"provider": e.prov.Name()},
		}
		if err := e.repo.Insert(ctx, rec); err != nil {
			e.obs.Log().Warn().Err(err).Msg("failed to persist interaction")
		}
	}

	return result, nil
}

func (e *Engine) renderPrompt(queryText string, chunks []knowledge.ScoredChunk, dynamic map[string]string, past []interaction.Scored) (string, error) {
	data := PromptData{
		Query:   queryText,
		Context: dynamic,
	}
	for _, c := range chunks {
		data.Knowledge = append(data.Knowledge, c.Text)
	}
	for _, p := range past {
		data.Interactions = append(data.Interactions, PastInteraction{
			Query:    p.Query,
			Response: p.Response,
		})
	}
	if len(e.design.Metadata) > 0 {
		data.Meta = make(map[string]any, len(e.design.Metadata))
		for k, v := range e.design.Metadata {
			data.Meta[k] = v.Interface()
		}
	}

	prompt, err := RenderPrompt(e.design.QueryTemplate(), data)
	if err != nil {
		return "", err
	}

	if e.design.PromptTemplates.System != "" {
		system, err := RenderPrompt(e.design.PromptTemplates.System, data)
		if err != nil {
			return "", err
		}
		prompt = system + "\n\n" + prompt
	}
	return prompt, nil
}
