package builder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/knowledge"
	"github.com/recallkit/recallkit/internal/observe"
	"github.com/recallkit/recallkit/internal/provider"
)

func testBuilder() *Builder {
	obs := observe.New(io.Discard, false)
	return New(provider.NewLocalProvider(), "local", obs, 0)
}

func buildDesign() *design.Design {
	return &design.Design{
		ID:   "geo-facts",
		Name: "Geography Facts",
		KnowledgeSources: []design.KnowledgeSource{
			{ID: "capitals", Kind: design.SourceInline, Content: "Paris is the capital of France.\n\nTokyo is the capital of Japan."},
		},
		MemoryPolicy: design.MemoryPolicy{Enabled: true, RetentionDays: 30, RetrievalLimit: 5},
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("ProducesCompleteDirectory", func(t *testing.T) {
		out := t.TempDir()
		dir, err := testBuilder().Build(ctx, buildDesign(), out, TypeStandalone)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
		if dir != filepath.Join(out, "geo-facts") {
			t.Errorf("unexpected build dir: %s", dir)
		}

		for _, name := range []string{DesignFileName, ManifestFileName, EntrypointName} {
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("missing %s: %v", name, err)
			}
		}
		if _, err := os.Stat(IndexDir(dir)); err != nil {
			t.Errorf("missing index dir: %v", err)
		}

		d, err := LoadDesign(dir)
		if err != nil {
			t.Fatalf("LoadDesign failed: %v", err)
		}
		if d.ID != "geo-facts" || len(d.KnowledgeSources) != 1 {
			t.Errorf("round-tripped design mismatch: %+v", d)
		}

		m, err := LoadManifest(dir)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}
		if m.DesignID != "geo-facts" || m.Embedder != "local" {
			t.Errorf("manifest mismatch: %+v", m)
		}
		if m.TotalChunks == 0 {
			t.Error("expected indexed chunks in manifest")
		}
	})

	t.Run("IndexServesRetrieval", func(t *testing.T) {
		dir, err := testBuilder().Build(ctx, buildDesign(), t.TempDir(), TypeStandalone)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		store, err := knowledge.Open(IndexDir(dir), "")
		if err != nil {
			t.Fatalf("open built index: %v", err)
		}
		vec, err := provider.NewLocalProvider().Embed(ctx, "What is the capital of France?")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		hits, err := store.Search(ctx, vec, 1)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(hits) != 1 || !strings.Contains(hits[0].Text, "France") {
			t.Errorf("expected the France chunk, got %+v", hits)
		}
	})

	t.Run("SkipsFailingSource", func(t *testing.T) {
		d := buildDesign()
		d.KnowledgeSources = append(d.KnowledgeSources, design.KnowledgeSource{
			ID:   "missing",
			Kind: design.SourceFile,
			Path: filepath.Join(t.TempDir(), "does-not-exist.txt"),
		})

		dir, err := testBuilder().Build(ctx, d, t.TempDir(), TypeStandalone)
		if err != nil {
			t.Fatalf("partial build must succeed: %v", err)
		}

		m, err := LoadManifest(dir)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}
		if len(m.Sources) != 2 {
			t.Fatalf("expected 2 source reports, got %d", len(m.Sources))
		}
		var skipped *SourceReport
		for i := range m.Sources {
			if m.Sources[i].SourceID == "missing" {
				skipped = &m.Sources[i]
			}
		}
		if skipped == nil || !skipped.Skipped || skipped.Error == "" {
			t.Errorf("expected a skipped report for the missing source, got %+v", m.Sources)
		}
		if m.TotalChunks == 0 {
			t.Error("valid source should still be indexed")
		}
	})

	t.Run("RejectsInvalidDesign", func(t *testing.T) {
		d := buildDesign()
		d.ID = ""
		d.KnowledgeSources[0].Kind = "carrier-pigeon"

		_, err := testBuilder().Build(ctx, d, t.TempDir(), TypeStandalone)
		if err == nil {
			t.Fatal("expected validation failure")
		}
		var res design.ValidationResult
		if !errors.As(err, &res) {
			t.Fatalf("expected ValidationResult, got %T: %v", err, err)
		}
		if len(res.Errors) < 2 {
			t.Errorf("expected all field errors reported, got %+v", res.Errors)
		}
	})

	t.Run("RebuildIsDeterministic", func(t *testing.T) {
		out := t.TempDir()
		b := testBuilder()

		dir, err := b.Build(ctx, buildDesign(), out, TypeStandalone)
		if err != nil {
			t.Fatalf("first build failed: %v", err)
		}
		first, err := LoadManifest(dir)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}

		dir2, err := b.Build(ctx, buildDesign(), out, TypeStandalone)
		if err != nil {
			t.Fatalf("rebuild failed: %v", err)
		}
		if dir2 != dir {
			t.Errorf("rebuild changed directory: %s vs %s", dir2, dir)
		}
		second, err := LoadManifest(dir2)
		if err != nil {
			t.Fatalf("LoadManifest failed: %v", err)
		}
		if second.TotalChunks != first.TotalChunks {
			t.Errorf("chunk count drifted on rebuild: %d vs %d", second.TotalChunks, first.TotalChunks)
		}

		store, err := knowledge.Open(IndexDir(dir2), "")
		if err != nil {
			t.Fatalf("open rebuilt index: %v", err)
		}
		if n := store.Count(); n != first.TotalChunks {
			t.Errorf("rebuilt index has %d chunks, want %d", n, first.TotalChunks)
		}

		vec, err := provider.NewLocalProvider().Embed(ctx, "capital of Japan")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		hits, err := store.Search(ctx, vec, 1)
		if err != nil {
			t.Fatalf("search rebuilt index: %v", err)
		}
		if len(hits) != 1 || !strings.Contains(hits[0].Text, "Tokyo") {
			t.Errorf("rebuilt index retrieval drifted: %+v", hits)
		}
	})

	t.Run("EntrypointMatchesBuildType", func(t *testing.T) {
		dir, err := testBuilder().Build(ctx, buildDesign(), t.TempDir(), TypeService)
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}

		script, err := os.ReadFile(filepath.Join(dir, EntrypointName))
		if err != nil {
			t.Fatalf("read entrypoint: %v", err)
		}
		if !strings.Contains(string(script), "recall serve") {
			t.Errorf("service entrypoint should start the service, got:\n%s", script)
		}

		info, err := os.Stat(filepath.Join(dir, EntrypointName))
		if err != nil {
			t.Fatalf("stat entrypoint: %v", err)
		}
		if info.Mode()&0100 == 0 {
			t.Error("entrypoint is not executable")
		}
	})
}
