package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallkit/recallkit/internal/design"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		src     design.KnowledgeSource
		want    string
		wantErr bool
	}{
		{
			name: "inline content passes through",
			src:  design.KnowledgeSource{ID: "a", Kind: design.SourceInline, Content: "hello world"},
			want: "hello world",
		},
		{
			name:    "missing file fails",
			src:     design.KnowledgeSource{ID: "b", Kind: design.SourceFile, Path: "/nonexistent/nope.txt"},
			wantErr: true,
		},
		{
			name:    "dynamic sources are not ingestable",
			src:     design.KnowledgeSource{ID: "c", Kind: design.SourceDynamic, Path: "anything"},
			wantErr: true,
		},
		{
			name:    "unknown kind fails",
			src:     design.KnowledgeSource{ID: "d", Kind: "smoke-signal"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.src, ExtractOptions{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("file contents"), 0600))

	got, err := Extract(design.KnowledgeSource{ID: "f", Kind: design.SourceFile, Path: path}, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, "file contents", got)
}

func TestExtractDocumentNonPDF(t *testing.T) {
	// Non-PDF documents are read as plain text; only .pdf goes through
	// the extraction/OCR path.
	path := filepath.Join(t.TempDir(), "report.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\n\nbody"), 0600))

	got, err := Extract(design.KnowledgeSource{ID: "doc", Kind: design.SourceDocument, Path: path}, ExtractOptions{})
	require.NoError(t, err)
	assert.Contains(t, got, "body")
}

func TestPrintableDensity(t *testing.T) {
	tests := []struct {
		name string
		text string
		low  bool
	}{
		{name: "empty page", text: "", low: true},
		{name: "whitespace only", text: "   \n\t  \n", low: true},
		{name: "a few stray glyphs", text: "x y", low: true},
		{name: "full paragraph", text: strings.Repeat("lorem ipsum dolor ", 20), low: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := printableDensity(tt.text)
			if tt.low {
				assert.Less(t, d, DefaultOCRDensity, "density %f should trigger OCR", d)
			} else {
				assert.GreaterOrEqual(t, d, DefaultOCRDensity, "density %f should not trigger OCR", d)
			}
		})
	}
}
