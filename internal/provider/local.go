package provider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const localDims = 384

// LocalProvider is a fully offline backend. Embeddings are deterministic
// bag-of-words vectors produced by feature hashing, so texts sharing
// vocabulary land close together under cosine similarity. Generation is
// extractive: it answers with the knowledge lines of the rendered prompt.
// Intended for offline builds, smoke tests and development.
type LocalProvider struct {
	dims int
}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{dims: localDims}
}

func (p *LocalProvider) Name() string {
	return "local"
}

// Embed hashes each lowercase token into one of dims buckets and
// normalizes the result to a unit vector.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dims)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(p.dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return vec, nil
}

// Generate extracts the knowledge bullets from the rendered prompt. With
// no retrieved knowledge it states so instead of inventing an answer.
func (p *LocalProvider) Generate(ctx context.Context, prompt string) (*Response, error) {
	var bullets []string
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "- "); ok {
			bullets = append(bullets, rest)
		}
	}

	content := "No relevant knowledge found for this query."
	if len(bullets) > 0 {
		content = strings.Join(bullets, " ")
	}

	return &Response{Content: content}, nil
}
