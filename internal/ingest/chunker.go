package ingest

import (
	"strings"
	"unicode"
)

// DefaultChunkSize bounds chunk text length to keep embedding quality and
// retrieval granularity stable.
const DefaultChunkSize = 1000

// ChunkOptions configures chunking behavior.
type ChunkOptions struct {
	MaxSize int
}

// Chunk normalizes whitespace and splits text into pieces of at most
// opts.MaxSize characters. Splits prefer paragraph boundaries, then
// sentence boundaries, and never land mid-word.
func Chunk(text string, opts ChunkOptions) []string {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultChunkSize
	}

	text = normalize(text)
	if text == "" {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []string{text}
	}

	var chunks []string
	var accum string

	flush := func() {
		if accum != "" {
			chunks = append(chunks, accum)
			accum = ""
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		if para == "" {
			continue
		}

		if len(para) > opts.MaxSize {
			flush()
			chunks = append(chunks, splitSentences(para, opts.MaxSize)...)
			continue
		}

		if accum == "" {
			accum = para
		} else if len(accum)+2+len(para) <= opts.MaxSize {
			accum += "\n\n" + para
		} else {
			flush()
			accum = para
		}
	}
	flush()

	return chunks
}

// splitSentences splits an oversized paragraph on sentence boundaries,
// falling back to word boundaries for run-on sentences.
func splitSentences(para string, maxSize int) []string {
	var chunks []string
	var accum string

	for _, sent := range sentences(para) {
		if len(sent) > maxSize {
			if accum != "" {
				chunks = append(chunks, accum)
				accum = ""
			}
			chunks = append(chunks, splitWords(sent, maxSize)...)
			continue
		}

		if accum == "" {
			accum = sent
		} else if len(accum)+1+len(sent) <= maxSize {
			accum += " " + sent
		} else {
			chunks = append(chunks, accum)
			accum = sent
		}
	}
	if accum != "" {
		chunks = append(chunks, accum)
	}

	return chunks
}

// sentences splits on terminal punctuation followed by whitespace.
func sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				s := strings.TrimSpace(string(runes[start : i+1]))
				if s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// splitWords hard-splits text on spaces so no chunk breaks mid-word.
func splitWords(text string, maxSize int) []string {
	var chunks []string
	var accum string

	for _, word := range strings.Fields(text) {
		if accum == "" {
			accum = word
		} else if len(accum)+1+len(word) <= maxSize {
			accum += " " + word
		} else {
			chunks = append(chunks, accum)
			accum = word
		}
	}
	if accum != "" {
		chunks = append(chunks, accum)
	}
	return chunks
}

// normalize collapses runs of blank lines and trims trailing space from
// every line, preserving paragraph structure.
func normalize(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
