package provider

import (
	"context"
	"sync"
)

// StubProvider is a scriptable provider for testing. Embeddings delegate
// to the deterministic local embedder so similarity behaves sensibly.
type StubProvider struct {
	Response    string
	GenerateErr error
	EmbedErr    error

	mu      sync.Mutex
	prompts []string
	local   *LocalProvider
}

func NewStubProvider(response string) *StubProvider {
	return &StubProvider{
		Response: response,
		local:    NewLocalProvider(),
	}
}

func (p *StubProvider) Name() string {
	return "stub"
}

func (p *StubProvider) Generate(ctx context.Context, prompt string) (*Response, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if p.GenerateErr != nil {
		return nil, p.GenerateErr
	}
	return &Response{Content: p.Response}, nil
}

func (p *StubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	return p.local.Embed(ctx, text)
}

// Prompts returns every prompt Generate has seen, in order.
func (p *StubProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.prompts))
	copy(out, p.prompts)
	return out
}
