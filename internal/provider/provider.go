// Package provider abstracts the generation and embedding model backends.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbeddingUnavailable marks an upstream embedding outage. Callers
// should treat it as retryable with backoff rather than fatal wherever a
// cached or partial result can still be served.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// Usage reports token consumption of a generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response represents the output from the generation model.
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Provider defines the interface for model interactions.
type Provider interface {
	// Generate sends a rendered prompt to the model and returns a response.
	Generate(ctx context.Context, prompt string) (*Response, error)

	// Embed generates a vector embedding for the given text. The mapping is
	// deterministic for a given model configuration.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider identifier (e.g. "openai", "local").
	Name() string
}

// Options carries the settings needed to construct a provider.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	EmbedModel string
}

// New constructs a provider by name.
func New(name string, opts Options) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIProvider(opts.APIKey, opts.BaseURL, opts.Model, opts.EmbedModel)
	case "gemini":
		return NewGeminiProvider(opts.APIKey, opts.Model, opts.EmbedModel)
	case "ollama":
		return NewOllamaProvider(opts.Model, opts.EmbedModel)
	case "local":
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (use openai, gemini, ollama or local)", name)
	}
}
