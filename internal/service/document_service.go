package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/ai"
	"github.com/askdocs/askdocs/internal/chunker"
	"github.com/askdocs/askdocs/internal/extract"
	"github.com/askdocs/askdocs/internal/filestore"
	"github.com/askdocs/askdocs/internal/model"
	errs "github.com/askdocs/askdocs/internal/pkg/errors"
	"github.com/askdocs/askdocs/internal/store"
)

const listContentPreviewRunes = 500

type DocumentService struct {
	store    store.Store
	splitter *chunker.Splitter
	embedder ai.IEmbedder
	files    filestore.Store // optional raw-upload archive
	locks    keyedMutex
}

func NewDocumentService(st store.Store, splitter *chunker.Splitter, embedder ai.IEmbedder, files filestore.Store) *DocumentService {
	return &DocumentService{
		store:    st,
		splitter: splitter,
		embedder: embedder,
		files:    files,
	}
}

type IndexResult struct {
	DocumentID  string         `json:"document_id"`
	ChunksAdded int            `json:"chunks_added"`
	Metadata    model.Metadata `json:"metadata"`
}

// IndexText chunks and indexes raw text under the given id, replacing any
// prior version of that document.
func (s *DocumentService) IndexText(ctx context.Context, text, id string, metadata model.Metadata) (*IndexResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text content is required: %w", errs.ErrValidation)
	}
	if id == "" {
		id = "doc_" + uuid.NewString()
	}
	meta := metadata.Clone()
	now := time.Now().UnixMilli()
	doc := model.Document{ID: id, Content: text, Metadata: meta, Ctime: now, Mtime: now}

	chunks := s.splitter.Chunk(doc)
	s.embedChunks(ctx, chunks)

	unlock := s.locks.lock(id)
	defer unlock()
	removed, err := s.store.ReplaceDocument(ctx, doc, chunks)
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document indexed",
		zap.String("document_id", id),
		zap.Int("chunks_added", len(chunks)),
		zap.Int("chunks_replaced", removed),
	)
	return &IndexResult{DocumentID: id, ChunksAdded: len(chunks), Metadata: meta}, nil
}

// IndexFile extracts text from an uploaded file and indexes it. The
// document id is derived from the content hash so re-uploading the same
// file replaces rather than duplicates.
func (s *DocumentService) IndexFile(ctx context.Context, filename string, data []byte, metadata model.Metadata) (*IndexResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("uploaded file is empty: %w", errs.ErrValidation)
	}
	text, err := extract.Text(filename, data)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(data)
	id := "doc_" + hex.EncodeToString(hash[:])[:16]

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	meta := metadata.Clone()
	meta["filename"] = filepath.Base(filename)
	meta["document_type"] = ext
	meta["file_size"] = len(data)

	if s.files != nil {
		if err := s.files.Save(ctx, id+"."+ext, bytes.NewReader(data), int64(len(data))); err != nil {
			logutil.GetLogger(ctx).Warn("failed to archive raw upload",
				zap.String("document_id", id), zap.Error(err))
		}
	}
	return s.IndexText(ctx, text, id, meta)
}

// embedChunks computes embeddings in place. Failures leave the chunk
// unembedded; the backfill job repairs it later, and semantic search skips
// it until then.
func (s *DocumentService) embedChunks(ctx context.Context, chunks []model.Chunk) {
	if s.embedder == nil {
		return
	}
	for i := range chunks {
		emb, err := s.embedder.Embed(ctx, chunks[i].Content, ai.TaskRetrievalDocument)
		if err != nil {
			logutil.GetLogger(ctx).Warn("chunk embedding deferred",
				zap.String("chunk_id", chunks[i].ID), zap.Error(err))
			continue
		}
		chunks[i].Embedding = emb
	}
}

func (s *DocumentService) Delete(ctx context.Context, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, fmt.Errorf("document_id is required: %w", errs.ErrValidation)
	}
	unlock := s.locks.lock(id)
	defer unlock()
	removed, err := s.store.DeleteDocument(ctx, id)
	if err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("document deleted",
		zap.String("document_id", id), zap.Int("chunks_deleted", removed))
	return removed, nil
}

type ListResult struct {
	Documents []model.Document `json:"documents"`
	Total     int              `json:"total"`
}

func (s *DocumentService) List(ctx context.Context, filters model.Metadata, limit int) (*ListResult, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	docs, total, err := s.store.ListDocuments(ctx, filters, limit)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Content = previewContent(docs[i].Content)
	}
	if docs == nil {
		docs = []model.Document{}
	}
	return &ListResult{Documents: docs, Total: total}, nil
}

func (s *DocumentService) Stats(ctx context.Context) (int, error) {
	return s.store.CountDocuments(ctx)
}

func previewContent(content string) string {
	runes := []rune(content)
	if len(runes) <= listContentPreviewRunes {
		return content
	}
	return string(runes[:listContentPreviewRunes]) + "..."
}
