package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/chunker"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/store"
)

// fakeEmbedder returns a pinned vector when the text has one, otherwise a
// bag-of-words vector so related texts land near each other.
type fakeEmbedder struct {
	pinned map[string][]float32
	err    error
	calls  int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.pinned[text]; ok {
		return v, nil
	}
	return bagVector(text), nil
}

func (e *fakeEmbedder) ModelName() string { return "test-embed" }

func bagVector(text string) []float32 {
	v := make([]float32, 8)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,?!")
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%8]++
	}
	return v
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.New(config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	return st
}

func newSplitter(size, overlap int) *chunker.Splitter {
	return chunker.New(config.ChunkingConfig{ChunkSize: size, ChunkOverlap: overlap, Separator: "\n\n"})
}

func retrievalDefaults() config.RetrievalConfig {
	return config.RetrievalConfig{MinScore: 0.35, HybridAlpha: 0.5, DefaultTopK: 5, MaxTopK: 50}
}

func multiParagraphContent(n int) string {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("paragraph %d stands alone here", i))
	}
	return strings.Join(parts, "\n\n")
}
