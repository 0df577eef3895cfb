package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/askdocs/askdocs/internal/ai"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/model"
	errs "github.com/askdocs/askdocs/internal/pkg/errors"
	"github.com/askdocs/askdocs/internal/store"
)

const ragSystemPrompt = "You are a helpful assistant that answers questions based on " +
	"the provided context. Use only the information from the context " +
	"to answer questions. If the answer cannot be found in the context, " +
	"say so clearly and do not make up information."

type QueryService struct {
	store     store.Store
	embedder  ai.IEmbedder
	generator ai.IGenerator
	cfg       config.RetrievalConfig
	timeout   time.Duration
	history   *HistoryLog
}

func NewQueryService(st store.Store, embedder ai.IEmbedder, generator ai.IGenerator, cfg config.RetrievalConfig, timeout time.Duration, history *HistoryLog) *QueryService {
	return &QueryService{
		store:     st,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		timeout:   timeout,
		history:   history,
	}
}

type QueryInput struct {
	Query   string
	TopK    *int // nil means "use the default"
	Filters model.Metadata
	Method  string
}

// Query runs the full retrieve-then-generate pipeline:
// received -> validated -> retrieved -> (empty | generated) -> returned.
func (s *QueryService) Query(ctx context.Context, input QueryInput) (*model.QueryResult, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("query text is required: %w", errs.ErrValidation)
	}
	topK := s.cfg.DefaultTopK
	if input.TopK != nil {
		topK = *input.TopK
		if topK <= 0 {
			return nil, fmt.Errorf("top_k must be positive: %w", errs.ErrValidation)
		}
		if topK > s.cfg.MaxTopK {
			return nil, fmt.Errorf("top_k exceeds maximum %d: %w", s.cfg.MaxTopK, errs.ErrValidation)
		}
	}
	method := input.Method
	if method == "" {
		method = model.RetrievalSemantic
	}
	if method != model.RetrievalSemantic && method != model.RetrievalHybrid {
		return nil, fmt.Errorf("retrieval_method must be semantic or hybrid: %w", errs.ErrValidation)
	}

	logger := logutil.GetLogger(ctx).With(zap.String("method", method), zap.Int("top_k", topK))

	hits, err := s.retrieve(ctx, query, topK, input.Filters, method)
	if err != nil {
		return nil, err
	}

	result := &model.QueryResult{
		Query:           query,
		RetrievalMethod: method,
		Sources:         make([]model.Source, 0, len(hits)),
	}
	for _, hit := range hits {
		result.Sources = append(result.Sources, model.Source{
			ID:       hit.Chunk.ID,
			Content:  hit.Chunk.Content,
			Metadata: hit.Chunk.Metadata,
			Score:    hit.Score,
		})
	}

	if len(hits) == 0 {
		// Nothing above the relevance threshold. This is a valid "no
		// grounding found" result, not an error.
		logger.Info("query returned no grounding")
		s.record(result)
		return result, nil
	}

	answer, err := s.generate(ctx, query, hits)
	if err != nil {
		return nil, err
	}
	result.Answer = answer
	logger.Info("query answered", zap.Int("sources", len(result.Sources)))
	s.record(result)
	return result, nil
}

func (s *QueryService) History() []model.HistoryEntry {
	if s.history == nil {
		return nil
	}
	return s.history.Entries()
}

func (s *QueryService) retrieve(ctx context.Context, query string, topK int, filters model.Metadata, method string) ([]store.ScoredChunk, error) {
	if method == model.RetrievalSemantic {
		hits, err := s.semanticHits(ctx, query, topK, filters)
		if err != nil {
			return nil, err
		}
		return aboveThreshold(hits, s.cfg.MinScore), nil
	}

	// Hybrid: over-fetch from both rankers, fuse by reciprocal rank.
	semantic, err := s.semanticHits(ctx, query, topK*2, filters)
	if err != nil {
		return nil, err
	}
	semantic = aboveThreshold(semantic, s.cfg.MinScore)
	keyword, err := s.store.KeywordSearch(ctx, query, topK*2, filters)
	if err != nil {
		return nil, err
	}
	return fuseHits(semantic, keyword, s.cfg.HybridAlpha, topK), nil
}

func (s *QueryService) semanticHits(ctx context.Context, query string, limit int, filters model.Metadata) ([]store.ScoredChunk, error) {
	embedCtx, cancel := s.bound(ctx)
	defer cancel()
	queryEmb, err := s.embedder.Embed(embedCtx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %v: %w", err, errs.ErrGeneration)
	}
	return s.store.SemanticSearch(ctx, queryEmb, limit, filters)
}

func (s *QueryService) generate(ctx context.Context, query string, hits []store.ScoredChunk) (string, error) {
	genCtx, cancel := s.bound(ctx)
	defer cancel()
	answer, err := s.generator.Generate(genCtx, buildPrompt(query, hits))
	if err != nil {
		return "", fmt.Errorf("generate answer: %v: %w", err, errs.ErrGeneration)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("model returned an empty answer: %w", errs.ErrGeneration)
	}
	return answer, nil
}

func (s *QueryService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *QueryService) record(result *model.QueryResult) {
	if s.history == nil {
		return
	}
	s.history.Append(model.HistoryEntry{
		Query:           result.Query,
		Answer:          result.Answer,
		Sources:         result.Sources,
		RetrievalMethod: result.RetrievalMethod,
		Timestamp:       time.Now().UnixMilli(),
	})
}

func buildPrompt(query string, hits []store.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString(ragSystemPrompt)
	sb.WriteString("\n\nContext:\n")
	for _, hit := range hits {
		sb.WriteString("- ")
		sb.WriteString(hit.Chunk.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

func aboveThreshold(hits []store.ScoredChunk, minScore float64) []store.ScoredChunk {
	out := hits[:0]
	for _, hit := range hits {
		if hit.Score >= minScore {
			out = append(out, hit)
		}
	}
	return out
}

// fuseHits combines the two rankings with weighted reciprocal rank fusion.
// The fused score alpha/(rank+1) + (1-alpha)/(rank+1) stays in (0,1], so
// the [0,1] score contract holds for hybrid results too.
func fuseHits(semantic, keyword []store.ScoredChunk, alpha float64, topK int) []store.ScoredChunk {
	type fused struct {
		chunk model.Chunk
		score float64
	}
	byID := make(map[string]*fused)
	order := make([]string, 0, len(semantic)+len(keyword))

	add := func(hits []store.ScoredChunk, weight float64) {
		for rank, hit := range hits {
			f, ok := byID[hit.Chunk.ID]
			if !ok {
				f = &fused{chunk: hit.Chunk}
				byID[hit.Chunk.ID] = f
				order = append(order, hit.Chunk.ID)
			}
			f.score += weight / float64(rank+1)
		}
	}
	add(semantic, alpha)
	add(keyword, 1-alpha)

	out := make([]store.ScoredChunk, 0, len(order))
	for _, id := range order {
		f := byID[id]
		out = append(out, store.ScoredChunk{Chunk: f.chunk, Score: f.score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.Seq < out[j].Chunk.Seq
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
