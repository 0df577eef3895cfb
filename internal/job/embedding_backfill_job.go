// Package job holds the background maintenance tasks the scheduler runs.
package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/ai"
	"github.com/askdocs/askdocs/internal/store"
)

// EmbeddingBackfillJob repairs chunks that were indexed while the embedding
// backend was unavailable. Indexing keeps such chunks with a nil embedding;
// this job embeds them so semantic search can see them again.
type EmbeddingBackfillJob struct {
	store    store.Store
	embedder ai.IEmbedder
	batch    int
}

func NewEmbeddingBackfillJob(st store.Store, embedder ai.IEmbedder, batch int) *EmbeddingBackfillJob {
	if batch <= 0 {
		batch = 32
	}
	return &EmbeddingBackfillJob{store: st, embedder: embedder, batch: batch}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.embedder == nil {
		return nil
	}
	logger := logutil.GetLogger(ctx)
	chunks, err := j.store.ListUnembeddedChunks(ctx, j.batch)
	if err != nil {
		return err
	}
	repaired := 0
	for _, chunk := range chunks {
		embedding, err := j.embedder.Embed(ctx, chunk.Content, ai.TaskRetrievalDocument)
		if err != nil {
			// backend is still down, the next tick retries the rest
			logger.Warn("embedding backfill stopped", zap.String("chunk_id", chunk.ID), zap.Error(err))
			break
		}
		if err := j.store.UpdateChunkEmbedding(ctx, chunk.ID, embedding); err != nil {
			return err
		}
		repaired++
	}
	if repaired > 0 {
		logger.Info("embedding backfill done", zap.Int("repaired", repaired), zap.Int("pending_batch", len(chunks)-repaired))
	}
	return nil
}
