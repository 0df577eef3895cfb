// Package chunker splits document content into the fixed-size windows that
// get indexed. Splitting is deterministic: the same content and policy
// always produce the same chunk set.
package chunker

import (
	"fmt"
	"strings"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/model"
)

type Splitter struct {
	chunkSize int // runes
	overlap   int // runes
	separator string
}

func New(cfg config.ChunkingConfig) *Splitter {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 500
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	sep := cfg.Separator
	if sep == "" {
		sep = "\n\n"
	}
	return &Splitter{chunkSize: size, overlap: overlap, separator: sep}
}

// Chunk splits a document into ordered chunks. Each chunk inherits the
// parent metadata and additionally carries chunk_index plus the parent id.
func (s *Splitter) Chunk(doc model.Document) []model.Chunk {
	pieces := s.Split(doc.Content)
	chunks := make([]model.Chunk, 0, len(pieces))
	for i, content := range pieces {
		meta := doc.Metadata.Clone()
		meta["chunk_index"] = i
		meta["document_id"] = doc.ID
		chunks = append(chunks, model.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    content,
			Metadata:   meta,
		})
	}
	return chunks
}

// Split breaks text into windows of at most chunkSize runes. Paragraphs
// (separator-delimited pieces) are packed greedily; a paragraph longer than
// the window is hard-split. With overlap > 0 every window after the first
// is prefixed with the tail of its predecessor.
func (s *Splitter) Split(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if runeLen(trimmed) <= s.chunkSize {
		return []string{trimmed}
	}

	var base []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		base = append(base, strings.Join(current, s.separator))
		current = nil
		currentLen = 0
	}

	for _, part := range strings.Split(trimmed, s.separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		partLen := runeLen(part)
		if partLen > s.chunkSize {
			flush()
			base = append(base, s.hardSplit(part)...)
			continue
		}
		sepLen := 0
		if len(current) > 0 {
			sepLen = runeLen(s.separator)
		}
		if currentLen+sepLen+partLen > s.chunkSize {
			flush()
			sepLen = 0
		}
		current = append(current, part)
		currentLen += sepLen + partLen
	}
	flush()

	if s.overlap <= 0 || len(base) <= 1 {
		return base
	}
	out := make([]string, len(base))
	out[0] = base[0]
	for i := 1; i < len(base); i++ {
		out[i] = tail(base[i-1], s.overlap) + base[i]
	}
	return out
}

// hardSplit windows an oversized piece into exact chunkSize partitions.
// Overlap between windows is added by the global pass in Split, so after it
// a chunk holds at most chunkSize+overlap runes.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func tail(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
