package engine

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// PastInteraction is one retrieved query/response pair.
type PastInteraction struct {
	Query    string
	Response string
}

// PromptData is the transient per-request context assembled for template
// rendering. It is discarded once the response is produced.
type PromptData struct {
	Knowledge    []string
	Context      map[string]string
	Interactions []PastInteraction
	Query        string
	Meta         map[string]any
}

var promptFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join":  strings.Join,
	"default": func(defaultVal, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
}

// RenderPrompt executes a prompt template against the assembled data.
func RenderPrompt(text string, data PromptData) (string, error) {
	tmpl, err := template.New("prompt").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template: %w", err)
	}
	return buf.String(), nil
}
