package provider

import (
	"context"
	"strings"
	"testing"
)

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func TestLocalEmbed(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider()

	t.Run("Deterministic", func(t *testing.T) {
		a, err := p.Embed(ctx, "the quick brown fox")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		b, err := p.Embed(ctx, "the quick brown fox")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("embeddings differ at dim %d", i)
			}
		}
	})

	t.Run("UnitNorm", func(t *testing.T) {
		vec, err := p.Embed(ctx, "some text to embed")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if len(vec) != localDims {
			t.Fatalf("dims = %d, want %d", len(vec), localDims)
		}
		if norm := cosine(vec, vec); norm < 0.999 || norm > 1.001 {
			t.Errorf("norm = %f, want ~1", norm)
		}
	})

	t.Run("SharedVocabularyScoresHigher", func(t *testing.T) {
		query, _ := p.Embed(ctx, "capital of France")
		related, _ := p.Embed(ctx, "Paris is the capital of France")
		unrelated, _ := p.Embed(ctx, "penguins live in Antarctica")

		if cosine(query, related) <= cosine(query, unrelated) {
			t.Errorf("related = %f, unrelated = %f; want related higher",
				cosine(query, related), cosine(query, unrelated))
		}
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		a, _ := p.Embed(ctx, "Hello World")
		b, _ := p.Embed(ctx, "hello world")
		if sim := cosine(a, b); sim < 0.999 {
			t.Errorf("case variants should embed identically, cosine = %f", sim)
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		vec, err := p.Embed(ctx, "")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		for i, v := range vec {
			if v != 0 {
				t.Fatalf("expected zero vector, dim %d = %f", i, v)
			}
		}
	})
}

func TestLocalGenerate(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider()

	t.Run("ExtractsKnowledgeBullets", func(t *testing.T) {
		prompt := "Relevant knowledge:\n- Paris is the capital of France.\n- The Seine flows through it.\nQuestion: tell me about Paris"
		resp, err := p.Generate(ctx, prompt)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !strings.Contains(resp.Content, "Paris is the capital of France.") {
			t.Errorf("missing first bullet: %q", resp.Content)
		}
		if !strings.Contains(resp.Content, "The Seine flows through it.") {
			t.Errorf("missing second bullet: %q", resp.Content)
		}
	})

	t.Run("NoKnowledge", func(t *testing.T) {
		resp, err := p.Generate(ctx, "Question: anything")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if resp.Content != "No relevant knowledge found for this query." {
			t.Errorf("unexpected content: %q", resp.Content)
		}
	})
}

func TestSplit(t *testing.T) {
	ctx := context.Background()
	gen := NewStubProvider("from gen")
	embed := NewLocalProvider()
	p := NewSplit(gen, embed)

	resp, err := p.Generate(ctx, "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if resp.Content != "from gen" {
		t.Errorf("generation not routed to gen backend: %q", resp.Content)
	}

	vec, err := p.Embed(ctx, "text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != localDims {
		t.Errorf("embedding not routed to embed backend, dims = %d", len(vec))
	}

	if got := p.Name(); !strings.Contains(got, "+") {
		t.Errorf("split name = %q, want combined form", got)
	}
}

func TestNew(t *testing.T) {
	t.Run("Local", func(t *testing.T) {
		p, err := New("local", Options{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if p.Name() != "local" {
			t.Errorf("name = %q", p.Name())
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, err := New("carrier-pigeon", Options{}); err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})
}
