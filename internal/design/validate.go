package design

import (
	"fmt"
	"strings"
	"text/template"
)

// FieldError is a single validation failure tagged with the field path
// of the offending value, e.g. "knowledge_sources[2].path".
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) Error() string {
	return e.Path + ": " + e.Message
}

// ValidationResult aggregates every validation failure of a design.
// Validation never stops at the first problem; authors get the full list.
type ValidationResult struct {
	Errors []FieldError
}

// Valid reports whether the design passed validation.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r ValidationResult) Error() string {
	if r.Valid() {
		return "design is valid"
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("invalid design (%d errors): %s", len(r.Errors), strings.Join(msgs, "; "))
}

// Validate checks a design for completeness and consistency.
func Validate(d *Design) ValidationResult {
	var res ValidationResult
	add := func(path, format string, args ...any) {
		res.Errors = append(res.Errors, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if d.ID == "" {
		add("id", "is required")
	} else if !validID(d.ID) {
		add("id", "must contain only letters, digits, '-' and '_'")
	}

	if d.Name == "" {
		add("name", "is required")
	}

	if len(d.KnowledgeSources) == 0 {
		add("knowledge_sources", "at least one source is required")
	}

	seen := make(map[string]int)
	for i, src := range d.KnowledgeSources {
		path := fmt.Sprintf("knowledge_sources[%d]", i)

		if src.ID == "" {
			add(path+".id", "is required")
		} else if prev, dup := seen[src.ID]; dup {
			add(path+".id", "duplicates knowledge_sources[%d].id %q", prev, src.ID)
		} else {
			seen[src.ID] = i
		}

		switch src.Kind {
		case SourceInline:
			if src.Content == "" {
				add(path+".content", "is required for inline sources")
			}
		case SourceFile, SourceDocument:
			if src.Path == "" {
				add(path+".path", "is required for %s sources", src.Kind)
			}
		case SourceDynamic:
			if src.Path == "" {
				add(path+".path", "is required for dynamic sources (file path or glob)")
			}
		case "":
			add(path+".kind", "is required")
		default:
			add(path+".kind", "unknown kind %q", src.Kind)
		}
	}

	if d.MemoryPolicy.Enabled {
		if d.MemoryPolicy.RetentionDays <= 0 {
			add("memory_policy.retention_days", "must be positive when memory is enabled")
		}
		if d.MemoryPolicy.RetrievalLimit <= 0 {
			add("memory_policy.retrieval_limit", "must be positive when memory is enabled")
		}
	}

	if d.PromptTemplates.Query != "" {
		if _, err := template.New("query").Parse(d.PromptTemplates.Query); err != nil {
			add("prompt_templates.query", "does not parse: %v", err)
		}
	}
	if d.PromptTemplates.System != "" {
		if _, err := template.New("system").Parse(d.PromptTemplates.System); err != nil {
			add("prompt_templates.system", "does not parse: %v", err)
		}
	}

	switch d.Retrieval.Metric {
	case "", "cosine", "dot":
	default:
		add("retrieval.metric", "unknown metric %q (use cosine or dot)", d.Retrieval.Metric)
	}
	if d.Retrieval.OCRDensity < 0 || d.Retrieval.OCRDensity >= 1 {
		add("retrieval.ocr_density", "must be in [0, 1)")
	}

	return res
}

// validID keeps design IDs safe to use as directory names.
func validID(id string) bool {
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
