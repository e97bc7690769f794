package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/observe"
	"github.com/recallkit/recallkit/internal/provider"
)

func testObserver() *observe.Observer {
	return observe.New(io.Discard, false)
}

func TestIngest(t *testing.T) {
	ing := New(provider.NewLocalProvider(), testObserver(), 0)
	ctx := context.Background()

	t.Run("InlineSource", func(t *testing.T) {
		src := design.KnowledgeSource{
			ID:      "facts",
			Kind:    design.SourceInline,
			Content: "Paris is the capital of France. Berlin is the capital of Germany.",
		}

		chunks, err := ing.Ingest(ctx, src)
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}

		c := chunks[0]
		if c.SourceID != "facts" || c.Seq != 0 {
			t.Errorf("unexpected identity: %s/%d", c.SourceID, c.Seq)
		}
		if len(c.Embedding) == 0 {
			t.Error("expected chunk to be embedded")
		}
		if c.Metadata["source_kind"] != "inline" {
			t.Errorf("expected source_kind metadata, got %v", c.Metadata)
		}
	})

	t.Run("FileSourceSequencing", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 50; i++ {
			fmt.Fprintf(&sb, "Paragraph number %d holds some knowledge worth keeping around.\n\n", i)
		}
		path := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}

		chunks, err := ing.Ingest(ctx, design.KnowledgeSource{ID: "notes", Kind: design.SourceFile, Path: path})
		if err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(chunks))
		}
		for i, c := range chunks {
			if c.Seq != i {
				t.Errorf("chunk %d has sequence %d", i, c.Seq)
			}
			if len(c.Text) > DefaultChunkSize {
				t.Errorf("chunk %d exceeds bound: %d chars", i, len(c.Text))
			}
			if c.Metadata["source_filename"] != "notes.txt" {
				t.Errorf("chunk %d missing filename metadata: %v", i, c.Metadata)
			}
		}
	})

	t.Run("UnreadableFile", func(t *testing.T) {
		src := design.KnowledgeSource{ID: "gone", Kind: design.SourceFile, Path: "/nonexistent/gone.txt"}
		if _, err := ing.Ingest(ctx, src); err == nil {
			t.Error("expected error for unreadable source")
		}
	})

	t.Run("EmptySource", func(t *testing.T) {
		src := design.KnowledgeSource{ID: "empty", Kind: design.SourceInline, Content: "   "}
		if _, err := ing.Ingest(ctx, src); err == nil {
			t.Error("expected error for empty source")
		}
	})
}

// flakyEmbedder fails with an upstream outage a fixed number of times.
type flakyEmbedder struct {
	failures int
	calls    int
	local    *provider.LocalProvider
}

func (f *flakyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, fmt.Errorf("%w: upstream 503", provider.ErrEmbeddingUnavailable)
	}
	return f.local.Embed(ctx, text)
}

func TestIngestRetriesEmbeddingOutage(t *testing.T) {
	flaky := &flakyEmbedder{failures: 2, local: provider.NewLocalProvider()}
	ing := New(flaky, testObserver(), 0)

	src := design.KnowledgeSource{ID: "s", Kind: design.SourceInline, Content: "short fact"}
	chunks, err := ing.Ingest(context.Background(), src)
	if err != nil {
		t.Fatalf("expected retries to recover, got: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 embed attempts, got %d", flaky.calls)
	}
}

func TestIngestDoesNotRetryHardErrors(t *testing.T) {
	hard := &hardEmbedder{}
	ing := New(hard, testObserver(), 0)

	src := design.KnowledgeSource{ID: "s", Kind: design.SourceInline, Content: "short fact"}
	if _, err := ing.Ingest(context.Background(), src); err == nil {
		t.Fatal("expected error")
	}
	if hard.calls != 1 {
		t.Errorf("expected a single attempt for a non-outage error, got %d", hard.calls)
	}
}

type hardEmbedder struct{ calls int }

func (h *hardEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h.calls++
	return nil, fmt.Errorf("malformed input")
}
