// Package store persists documents and their chunks and answers retrieval
// queries over them. Backends register themselves by name; deployment
// config selects one.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/model"
)

// ScoredChunk is one retrieval hit. Score is normalized to [0,1].
type ScoredChunk struct {
	Chunk model.Chunk
	Score float64
}

type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// ReplaceDocument atomically removes any prior chunks for doc.ID and
	// inserts the new set. It returns how many chunks were removed.
	ReplaceDocument(ctx context.Context, doc model.Document, chunks []model.Chunk) (int, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	// DeleteDocument removes the document and all derived chunks atomically
	// and returns the chunk count. Unknown ids fail with ErrNotFound.
	DeleteDocument(ctx context.Context, id string) (int, error)
	// ListDocuments returns parent documents matching the exact-match
	// metadata filters, capped at limit. The second result is the match
	// count ignoring limit.
	ListDocuments(ctx context.Context, filters model.Metadata, limit int) ([]model.Document, int, error)
	CountDocuments(ctx context.Context) (int, error)

	// SemanticSearch ranks chunks by embedding similarity, descending, ties
	// broken by indexing order. Chunks without an embedding are skipped.
	SemanticSearch(ctx context.Context, embedding []float32, topK int, filters model.Metadata) ([]ScoredChunk, error)
	// KeywordSearch ranks chunks by lexical match, same ordering rules.
	KeywordSearch(ctx context.Context, query string, topK int, filters model.Metadata) ([]ScoredChunk, error)

	// ListUnembeddedChunks and UpdateChunkEmbedding support the backfill job
	// that repairs chunks whose embedding failed at index time.
	ListUnembeddedChunks(ctx context.Context, limit int) ([]model.Chunk, error)
	UpdateChunkEmbedding(ctx context.Context, chunkID string, embedding []float32) error
}

type Factory func(cfg config.StoreConfig) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(cfg config.StoreConfig) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" {
		return nil, fmt.Errorf("store.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
	return factory(cfg)
}
