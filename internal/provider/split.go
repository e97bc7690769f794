package provider

import "context"

// split routes generation and embedding to different backends, for
// deployments pairing e.g. an OpenAI generation model with local or
// Ollama embeddings.
type split struct {
	gen   Provider
	embed Provider
}

// NewSplit combines a generation backend with a separate embedding backend.
func NewSplit(gen, embed Provider) Provider {
	return &split{gen: gen, embed: embed}
}

func (p *split) Name() string {
	return p.gen.Name() + "+" + p.embed.Name()
}

func (p *split) Generate(ctx context.Context, prompt string) (*Response, error) {
	return p.gen.Generate(ctx, prompt)
}

func (p *split) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embed.Embed(ctx, text)
}
