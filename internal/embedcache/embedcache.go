package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/ai"
)

// CacheStore is a persistent embedding cache keyed by (model, task, content
// hash). The postgres store implements it; the memory store does not, in
// which case only the LRU layer applies.
type CacheStore interface {
	GetCachedEmbedding(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error)
	SaveCachedEmbedding(ctx context.Context, modelName, taskType, contentHash string, embedding []float32, ctime int64) error
}

// WrapLRU puts an in-process expiring LRU in front of an embedder.
func WrapLRU(e ai.IEmbedder, size int, ttl time.Duration) ai.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key, _ := buildCacheKey(l.next.ModelName(), taskType, text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (lru)", zap.String("task_type", taskType))
		return cloneEmbedding(cached), nil
	}
	res, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

// WrapStore puts a persistent cache behind the LRU layer so embeddings
// survive restarts.
func WrapStore(e ai.IEmbedder, store CacheStore) ai.IEmbedder {
	if e == nil || store == nil {
		return e
	}
	return &storeEmbedder{next: e, store: store}
}

type storeEmbedder struct {
	next  ai.IEmbedder
	store CacheStore
}

func (s *storeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	_, contentHash := buildCacheKey(s.next.ModelName(), taskType, text)
	modelName := s.next.ModelName()
	values, ok, err := s.store.GetCachedEmbedding(ctx, modelName, taskType, contentHash)
	if err != nil {
		return nil, err
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (store)", zap.String("task_type", taskType))
		return values, nil
	}
	res, err := s.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveCachedEmbedding(ctx, modelName, taskType, contentHash, res, time.Now().Unix()); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return res, nil
}

func (s *storeEmbedder) ModelName() string {
	return s.next.ModelName()
}

func buildCacheKey(modelName, taskType, text string) (string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
