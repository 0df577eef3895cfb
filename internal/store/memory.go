package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/model"
	errs "github.com/askdocs/askdocs/internal/pkg/errors"
)

// memoryStore keeps everything in process memory. It is the default for
// demos and the backend the test suite runs against.
type memoryStore struct {
	mu    sync.RWMutex
	docs  map[string]*docEntry
	order []string // document ids in first-indexed order
	seq   int64
}

type docEntry struct {
	doc    model.Document
	chunks []model.Chunk
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]*docEntry)}
}

func init() {
	Register("memory", func(cfg config.StoreConfig) (Store, error) {
		return newMemoryStore(), nil
	})
}

func (s *memoryStore) Ping(ctx context.Context) error { return nil }
func (s *memoryStore) Close() error                   { return nil }

func (s *memoryStore) ReplaceDocument(ctx context.Context, doc model.Document, chunks []model.Chunk) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	if prev, ok := s.docs[doc.ID]; ok {
		removed = len(prev.chunks)
		doc.Ctime = prev.doc.Ctime
	} else {
		s.order = append(s.order, doc.ID)
	}
	stored := make([]model.Chunk, len(chunks))
	copy(stored, chunks)
	for i := range stored {
		s.seq++
		stored[i].Seq = s.seq
	}
	s.docs[doc.ID] = &docEntry{doc: doc, chunks: stored}
	return removed, nil
}

func (s *memoryStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", id, errs.ErrNotFound)
	}
	doc := entry.doc
	return &doc, nil
}

func (s *memoryStore) DeleteDocument(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.docs[id]
	if !ok {
		return 0, fmt.Errorf("document %q: %w", id, errs.ErrNotFound)
	}
	removed := len(entry.chunks)
	delete(s.docs, id)
	for i, did := range s.order {
		if did == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return removed, nil
}

func (s *memoryStore) ListDocuments(ctx context.Context, filters model.Metadata, limit int) ([]model.Document, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Document
	total := 0
	for _, id := range s.order {
		entry := s.docs[id]
		if !matchMetadata(entry.doc.Metadata, filters) {
			continue
		}
		total++
		if limit <= 0 || len(out) < limit {
			out = append(out, entry.doc)
		}
	}
	return out, total, nil
}

func (s *memoryStore) CountDocuments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *memoryStore) SemanticSearch(ctx context.Context, embedding []float32, topK int, filters model.Metadata) ([]ScoredChunk, error) {
	return s.search(topK, filters, func(c model.Chunk) (float64, bool) {
		if len(c.Embedding) == 0 {
			return 0, false
		}
		return CosineScore(embedding, c.Embedding), true
	})
}

func (s *memoryStore) KeywordSearch(ctx context.Context, query string, topK int, filters model.Metadata) ([]ScoredChunk, error) {
	return s.search(topK, filters, func(c model.Chunk) (float64, bool) {
		score := KeywordScore(query, c.Content)
		return score, score > 0
	})
}

func (s *memoryStore) search(topK int, filters model.Metadata, score func(model.Chunk) (float64, bool)) ([]ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []ScoredChunk
	for _, id := range s.order {
		for _, chunk := range s.docs[id].chunks {
			if !matchMetadata(chunk.Metadata, filters) {
				continue
			}
			if v, ok := score(chunk); ok {
				hits = append(hits, ScoredChunk{Chunk: chunk, Score: v})
			}
		}
	}
	sortHits(hits)
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *memoryStore) ListUnembeddedChunks(ctx context.Context, limit int) ([]model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Chunk
	for _, id := range s.order {
		for _, chunk := range s.docs[id].chunks {
			if len(chunk.Embedding) > 0 {
				continue
			}
			out = append(out, chunk)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range s.docs {
		for i := range entry.chunks {
			if entry.chunks[i].ID == chunkID {
				entry.chunks[i].Embedding = embedding
				return nil
			}
		}
	}
	return fmt.Errorf("chunk %q: %w", chunkID, errs.ErrNotFound)
}

// sortHits orders by descending score; equal scores keep indexing order so
// rank numbers stay reproducible for identical index state.
func sortHits(hits []ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Seq < hits[j].Chunk.Seq
	})
}

// matchMetadata applies exact-match filter predicates. Values are compared
// on their string form since both sides originate from JSON.
func matchMetadata(meta model.Metadata, filters model.Metadata) bool {
	for k, want := range filters {
		got, ok := meta[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}
