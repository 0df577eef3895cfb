package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/model"
)

func newSplitter(size, overlap int) *Splitter {
	return New(config.ChunkingConfig{ChunkSize: size, ChunkOverlap: overlap, Separator: "\n\n"})
}

func TestSplitShortContentSingleChunk(t *testing.T) {
	s := newSplitter(500, 50)
	got := s.Split("The sky is blue.")
	require.Equal(t, []string{"The sky is blue."}, got)
}

func TestSplitEmptyContent(t *testing.T) {
	s := newSplitter(500, 50)
	require.Nil(t, s.Split("   \n\n  "))
}

func TestSplitRoundTripWithoutOverlap(t *testing.T) {
	s := newSplitter(20, 0)
	paragraphs := []string{
		"alpha bravo charlie",
		"delta echo",
		"foxtrot golf hotel india juliet kilo lima",
		"mike",
	}
	content := strings.Join(paragraphs, "\n\n")

	chunks := s.Split(content)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c)), 20)
	}
	// Concatenation round-trips the content modulo chunk-boundary whitespace.
	joined := strings.Join(chunks, "")
	normalize := func(v string) string {
		return strings.Join(strings.Fields(v), " ")
	}
	require.Equal(t, normalize(content), normalize(joined))
}

func TestSplitDeterministic(t *testing.T) {
	s := newSplitter(30, 5)
	content := strings.Repeat("one two three four five. ", 20)
	first := s.Split(content)
	second := s.Split(content)
	require.Equal(t, first, second)
}

func TestSplitOverlapCarriesTail(t *testing.T) {
	s := newSplitter(10, 4)
	content := "aaaaaaaaaa" + "\n\n" + "bbbbbbbbbb"
	chunks := s.Split(content)
	require.Len(t, chunks, 2)
	require.Equal(t, "aaaaaaaaaa", chunks[0])
	require.True(t, strings.HasPrefix(chunks[1], "aaaa"), "second chunk should start with the previous tail, got %q", chunks[1])
	require.True(t, strings.HasSuffix(chunks[1], "bbbbbbbbbb"))
}

func TestSplitOversizedParagraphIsWindowed(t *testing.T) {
	s := newSplitter(10, 0)
	content := strings.Repeat("x", 25)
	chunks := s.Split(content)
	require.Equal(t, []string{strings.Repeat("x", 10), strings.Repeat("x", 10), strings.Repeat("x", 5)}, chunks)
}

func TestChunkInheritsMetadataAndIndex(t *testing.T) {
	s := newSplitter(10, 0)
	doc := model.Document{
		ID:       "doc1",
		Content:  strings.Repeat("y", 25),
		Metadata: model.Metadata{"filename": "y.txt"},
	}
	chunks := s.Chunk(doc)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		require.Equal(t, "doc1", c.DocumentID)
		require.Equal(t, i, c.ChunkIndex)
		require.Equal(t, "doc1:"+string(rune('0'+i)), c.ID)
		require.Equal(t, "y.txt", c.Metadata["filename"])
		require.Equal(t, i, c.Metadata["chunk_index"])
	}
	// Parent metadata must not be mutated by chunking.
	_, tainted := doc.Metadata["chunk_index"]
	require.False(t, tainted)
}
