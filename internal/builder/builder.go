// Package builder materializes a validated design into a self-contained,
// portable build directory: serialized design, populated vector index,
// interaction log location and a run entrypoint.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/recallkit/recallkit/internal/design"
	"github.com/recallkit/recallkit/internal/ingest"
	"github.com/recallkit/recallkit/internal/knowledge"
	"github.com/recallkit/recallkit/internal/observe"
)

// Well-known names inside a build directory.
const (
	DesignFileName   = "design.json"
	ManifestFileName = "manifest.json"
	EntrypointName   = "run.sh"
	IndexDirName     = "index"
	InteractionsDB   = "interactions.db"
)

// Type selects what the build directory's entrypoint runs.
type Type string

const (
	// TypeStandalone builds a directory answering one-shot queries.
	TypeStandalone Type = "standalone"
	// TypeService builds a directory that starts the network service.
	TypeService Type = "service"
)

// SourceReport records the ingestion outcome of one knowledge source.
type SourceReport struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Manifest describes what a build produced.
type Manifest struct {
	DesignID    string         `json:"design_id"`
	DesignName  string         `json:"design_name"`
	BuildType   Type           `json:"build_type"`
	BuiltAt     time.Time      `json:"built_at"`
	Embedder    string         `json:"embedder"`
	Sources     []SourceReport `json:"sources"`
	TotalChunks int            `json:"total_chunks"`
}

// Builder runs the offline build pipeline. Builds are single-threaded;
// two builds must not target the same output directory concurrently.
// That is a caller responsibility, not enforced by a lock here.
type Builder struct {
	ing      *ingest.Ingestor
	obs      *observe.Observer
	embedder string
}

// New creates a Builder using the given embedding backend.
func New(embedder ingest.Embedder, embedderName string, obs *observe.Observer, ocrDensity float64) *Builder {
	return &Builder{
		ing:      ingest.New(embedder, obs, ocrDensity),
		obs:      obs,
		embedder: embedderName,
	}
}

// Build validates the design and materializes it under outputRoot. The
// build directory is named by the design ID; rebuilding with the same
// inputs deterministically overwrites the prior directory. A failing
// knowledge source is logged and skipped; a partial knowledge base
// beats a hard failure.
func (b *Builder) Build(ctx context.Context, d *design.Design, outputRoot string, buildType Type) (string, error) {
	ctx, span := b.obs.StartSpan(ctx, "Build")
	defer span.End()

	if res := design.Validate(d); !res.Valid() {
		return "", res
	}
	if buildType == "" {
		buildType = TypeStandalone
	}

	dir := filepath.Join(outputRoot, d.ID)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear prior build directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create build directory: %w", err)
	}

	store, err := knowledge.Open(filepath.Join(dir, IndexDirName), d.Retrieval.Metric)
	if err != nil {
		return "", err
	}

	manifest := Manifest{
		DesignID:   d.ID,
		DesignName: d.Name,
		BuildType:  buildType,
		BuiltAt:    time.Now().UTC(),
		Embedder:   b.embedder,
	}

	for _, src := range d.IngestedSources() {
		report := SourceReport{SourceID: src.ID}

		chunks, err := b.ing.Ingest(ctx, src)
		if err != nil {
			b.obs.Log().Warn().Str("source", src.ID).Err(err).Msg("source skipped")
			report.Skipped = true
			report.Error = err.Error()
			manifest.Sources = append(manifest.Sources, report)
			continue
		}

		if err := store.Upsert(ctx, chunks); err != nil {
			return "", fmt.Errorf("index source %s: %w", src.ID, err)
		}
		report.Chunks = len(chunks)
		manifest.TotalChunks += len(chunks)
		manifest.Sources = append(manifest.Sources, report)
	}

	if err := writeJSON(filepath.Join(dir, DesignFileName), d); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, ManifestFileName), manifest); err != nil {
		return "", err
	}
	if err := writeEntrypoint(dir, buildType); err != nil {
		return "", err
	}

	b.obs.Log().Info().
		Str("design", d.ID).
		Int("chunks", manifest.TotalChunks).
		Str("dir", dir).
		Msg("build complete")
	return dir, nil
}

// LoadDesign reads the serialized design back from a build directory.
func LoadDesign(buildDir string) (*design.Design, error) {
	data, err := os.ReadFile(filepath.Join(buildDir, DesignFileName)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("read built design: %w", err)
	}
	var d design.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse built design: %w", err)
	}
	return &d, nil
}

// LoadManifest reads the build manifest from a build directory.
func LoadManifest(buildDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(buildDir, ManifestFileName)) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// IndexDir returns the vector index location inside a build directory.
func IndexDir(buildDir string) string {
	return filepath.Join(buildDir, IndexDirName)
}

// InteractionsPath returns the interaction log location inside a build
// directory.
func InteractionsPath(buildDir string) string {
	return filepath.Join(buildDir, InteractionsDB)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeEntrypoint(dir string, buildType Type) error {
	var script string
	switch buildType {
	case TypeService:
		script = "#!/bin/sh\ncd \"$(dirname \"$0\")\"\nexec recall serve .\n"
	default:
		script = "#!/bin/sh\ncd \"$(dirname \"$0\")\"\nexec recall query . \"$@\"\n"
	}
	if err := os.WriteFile(filepath.Join(dir, EntrypointName), []byte(script), 0700); err != nil { // #nosec G306
		return fmt.Errorf("write entrypoint: %w", err)
	}
	return nil
}
