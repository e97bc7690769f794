package ingest

import (
	"strings"
	"testing"
)

func TestChunk(t *testing.T) {
	t.Run("ShortTextSingleChunk", func(t *testing.T) {
		chunks := Chunk("Paris is the capital of France.", ChunkOptions{})
		if len(chunks) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(chunks))
		}
		if chunks[0] != "Paris is the capital of France." {
			t.Errorf("unexpected chunk: %q", chunks[0])
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		if chunks := Chunk("   \n\n  ", ChunkOptions{}); chunks != nil {
			t.Errorf("expected no chunks, got %v", chunks)
		}
	})

	t.Run("RespectsMaxSize", func(t *testing.T) {
		sentence := "The quick brown fox jumps over the lazy dog. "
		text := strings.Repeat(sentence, 200)

		chunks := Chunk(text, ChunkOptions{MaxSize: 1000})
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(chunks))
		}
		for i, c := range chunks {
			if len(c) > 1000 {
				t.Errorf("chunk %d exceeds max size: %d chars", i, len(c))
			}
		}
	})

	t.Run("NeverSplitsMidWord", func(t *testing.T) {
		text := strings.Repeat("supercalifragilistic ", 300)

		chunks := Chunk(text, ChunkOptions{MaxSize: 100})
		for i, c := range chunks {
			for _, word := range strings.Fields(c) {
				if word != "supercalifragilistic" {
					t.Fatalf("chunk %d broke a word: %q", i, word)
				}
			}
		}
	})

	t.Run("PrefersParagraphBoundaries", func(t *testing.T) {
		para := strings.Repeat("aaa bbb ccc. ", 30) // ~390 chars
		text := strings.TrimSpace(strings.Repeat(para+"\n\n", 4))

		chunks := Chunk(text, ChunkOptions{MaxSize: 500})
		for i, c := range chunks {
			if strings.Contains(c, "\n\n") && len(c) > 500 {
				t.Errorf("chunk %d merged paragraphs past the limit", i)
			}
		}
	})

	t.Run("SentenceBoundariesInsideLongParagraph", func(t *testing.T) {
		text := strings.TrimSpace(strings.Repeat("A complete thought ends here. ", 100))

		chunks := Chunk(text, ChunkOptions{MaxSize: 200})
		for i, c := range chunks[:len(chunks)-1] {
			if !strings.HasSuffix(c, ".") {
				t.Errorf("chunk %d does not end on a sentence boundary: %q", i, c)
			}
		}
	})

	t.Run("OrderPreserved", func(t *testing.T) {
		text := "First paragraph about alpha.\n\n" +
			strings.Repeat("Filler sentence for padding purposes. ", 40) +
			"\n\nLast paragraph about omega."

		chunks := Chunk(text, ChunkOptions{MaxSize: 300})
		joined := strings.Join(chunks, " ")
		alpha := strings.Index(joined, "alpha")
		omega := strings.Index(joined, "omega")
		if alpha == -1 || omega == -1 || alpha > omega {
			t.Errorf("origin ordering not preserved (alpha=%d omega=%d)", alpha, omega)
		}
	})
}

func TestNormalize(t *testing.T) {
	got := normalize("line one  \r\n\r\n\r\n\r\nline two\t\n")
	want := "line one\n\nline two"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
