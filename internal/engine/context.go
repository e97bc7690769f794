package engine

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/recallkit/recallkit/internal/design"
)

// readDynamicContext reads the current contents of every dynamic source.
// These files are expected to change externally between calls, so they
// are re-read on every query rather than ingested at build time. An
// unreadable source is logged and skipped.
func (e *Engine) readDynamicContext(sources []design.KnowledgeSource) map[string]string {
	if len(sources) == 0 {
		return nil
	}

	out := make(map[string]string)
	for _, src := range sources {
		matches, err := doublestar.FilepathGlob(src.Path)
		if err != nil {
			e.obs.Log().Warn().Str("source", src.ID).Err(err).Msg("bad dynamic context pattern")
			continue
		}
		if len(matches) == 0 {
			e.obs.Log().Warn().Str("source", src.ID).Str("path", src.Path).Msg("dynamic context matched nothing")
			continue
		}

		for _, path := range matches {
			data, err := os.ReadFile(path) // #nosec G304
			if err != nil {
				e.obs.Log().Warn().Str("source", src.ID).Str("path", path).Err(err).Msg("dynamic context unreadable")
				continue
			}

			key := src.ID
			if len(matches) > 1 {
				key = src.ID + "/" + filepath.Base(path)
			}
			out[key] = string(data)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
