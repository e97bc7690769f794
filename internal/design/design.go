// Package design defines the declarative description of a memory agent:
// its knowledge sources, memory policy and prompt templates. A Design is
// authored once, validated by the build pipeline and consumed read-only
// by the engine at runtime.
package design

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceKind identifies how a knowledge source's content is obtained.
type SourceKind string

const (
	// SourceInline carries its content directly in the design document.
	SourceInline SourceKind = "inline"
	// SourceFile points at a plain or structured text file ingested at build time.
	SourceFile SourceKind = "file"
	// SourceDocument points at a document (e.g. PDF) that needs extraction,
	// with OCR fallback for scanned pages.
	SourceDocument SourceKind = "document"
	// SourceDynamic points at files re-read on every query instead of being
	// ingested. The path may be a glob pattern.
	SourceDynamic SourceKind = "dynamic"
)

// KnowledgeSource describes one source of agent knowledge.
type KnowledgeSource struct {
	ID          string     `json:"id" yaml:"id"`
	Kind        SourceKind `json:"kind" yaml:"kind"`
	Path        string     `json:"path,omitempty" yaml:"path,omitempty"`
	Content     string     `json:"content,omitempty" yaml:"content,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// MemoryPolicy governs the interaction store.
type MemoryPolicy struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	RetentionDays  int  `json:"retention_days" yaml:"retention_days"`
	RetrievalLimit int  `json:"retrieval_limit" yaml:"retrieval_limit"`
}

// PromptTemplates holds the text/template sources used to render prompts.
// Query receives knowledge chunks, dynamic context, retrieved interactions
// and the query text.
type PromptTemplates struct {
	System string `json:"system,omitempty" yaml:"system,omitempty"`
	Query  string `json:"query,omitempty" yaml:"query,omitempty"`
}

// Retrieval holds tuning knobs left configurable rather than hardcoded.
type Retrieval struct {
	// Metric selects the similarity metric: cosine (default) or dot.
	Metric string `json:"metric,omitempty" yaml:"metric,omitempty"`
	// OCRDensity is the minimum printable-character density per page below
	// which document extraction falls back to OCR. Zero means the default.
	OCRDensity float64 `json:"ocr_density,omitempty" yaml:"ocr_density,omitempty"`
}

// Design is the validated, immutable description of an agent.
type Design struct {
	ID               string            `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	KnowledgeSources []KnowledgeSource `json:"knowledge_sources" yaml:"knowledge_sources"`
	MemoryPolicy     MemoryPolicy      `json:"memory_policy" yaml:"memory_policy"`
	PromptTemplates  PromptTemplates   `json:"prompt_templates" yaml:"prompt_templates"`
	Retrieval        Retrieval         `json:"retrieval,omitempty" yaml:"retrieval,omitempty"`
	Metadata         map[string]Value  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// DefaultQueryTemplate is used when a design omits prompt_templates.query.
const DefaultQueryTemplate = `{{if .Knowledge}}Relevant knowledge:
{{range .Knowledge}}- {{.}}
{{end}}{{end}}{{if .Context}}Current context:
{{range $name, $content := .Context}}[{{$name}}]
{{$content}}
{{end}}{{end}}{{if .Interactions}}Past interactions:
{{range .Interactions}}Q: {{.Query}}
A: {{.Response}}
{{end}}{{end}}Question: {{.Query}}`

// Load reads a design document from a YAML or JSON file.
func Load(path string) (*Design, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read design file: %w", err)
	}

	var d Design
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON design: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML design: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported design format: %s (use .json or .yaml)", ext)
	}

	return &d, nil
}

// QueryTemplate returns the query prompt template, falling back to the default.
func (d *Design) QueryTemplate() string {
	if d.PromptTemplates.Query != "" {
		return d.PromptTemplates.Query
	}
	return DefaultQueryTemplate
}

// DynamicSources returns the sources re-read on every query.
func (d *Design) DynamicSources() []KnowledgeSource {
	var out []KnowledgeSource
	for _, src := range d.KnowledgeSources {
		if src.Kind == SourceDynamic {
			out = append(out, src)
		}
	}
	return out
}

// IngestedSources returns the sources consumed once at build time.
func (d *Design) IngestedSources() []KnowledgeSource {
	var out []KnowledgeSource
	for _, src := range d.KnowledgeSources {
		if src.Kind != SourceDynamic {
			out = append(out, src)
		}
	}
	return out
}
