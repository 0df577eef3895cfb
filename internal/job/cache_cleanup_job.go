package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type cacheCleaner interface {
	DeleteCachedEmbeddingsBefore(ctx context.Context, cutoff int64) (int64, error)
}

// CacheCleanupJob expires persisted embedding-cache rows older than the
// retention window.
type CacheCleanupJob struct {
	cleaner  cacheCleaner
	keepDays int
}

func NewCacheCleanupJob(cleaner cacheCleaner, keepDays int) *CacheCleanupJob {
	if keepDays <= 0 {
		keepDays = 30
	}
	return &CacheCleanupJob{cleaner: cleaner, keepDays: keepDays}
}

func (j *CacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	if j.cleaner == nil {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(j.keepDays) * 24 * time.Hour).Unix()
	deleted, err := j.cleaner.DeleteCachedEmbeddingsBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("embedding cache cleanup done", zap.Int64("deleted", deleted))
	}
	return nil
}
