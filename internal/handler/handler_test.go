package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdocs/askdocs/internal/chunker"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/crew"
	"github.com/askdocs/askdocs/internal/service"
	"github.com/askdocs/askdocs/internal/store"
)

type testEmbedder struct{}

func (testEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	v := make([]float32, 8)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,?!")
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%8]++
	}
	return v, nil
}

func (testEmbedder) ModelName() string { return "test-embed" }

type testGenerator struct {
	err error
}

func (g *testGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "generated answer", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(config.StoreConfig{Type: "memory"})
	require.NoError(t, err)

	splitter := chunker.New(config.ChunkingConfig{ChunkSize: 500, ChunkOverlap: 0, Separator: "\n\n"})
	retrieval := config.RetrievalConfig{MinScore: 0.35, HybridAlpha: 0.5, DefaultTopK: 5, MaxTopK: 50}
	gen := &testGenerator{}

	docs := service.NewDocumentService(st, splitter, testEmbedder{}, nil)
	queries := service.NewQueryService(st, testEmbedder{}, gen, retrieval, 0, service.NewHistoryLog(50))
	campaigns := service.NewCampaignService(crew.MarketingStages(gen), 0)

	engine := gin.New()
	api := engine.Group("/api/v1")
	RegisterRoutes(api, RouterDeps{
		Health:    NewHealthHandler(st, docs, "askdocs", "test"),
		Documents: NewDocumentHandler(docs),
		Queries:   NewQueryHandler(queries),
		Campaigns: NewCampaignHandler(campaigns),
	})
	return engine, st
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	decoded := map[string]interface{}{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealthEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)
	w, body := doJSON(t, engine, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "askdocs", body["service"])
	assert.Contains(t, body, "stats")
}

func TestUploadTextAndStats(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, body := doJSON(t, engine, http.MethodPost, "/api/v1/documents/upload", map[string]interface{}{
		"text":     "The sky is blue.",
		"metadata": map[string]interface{}{"source": "test"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["document_id"])
	assert.Equal(t, float64(1), body["chunks_added"])

	w, body = doJSON(t, engine, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total_documents"])
}

func TestUploadEmptyTextFails(t *testing.T) {
	engine, _ := newTestRouter(t)
	w, body := doJSON(t, engine, http.MethodPost, "/api/v1/documents/upload", map[string]interface{}{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func multipartUpload(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadSingleFile(t *testing.T) {
	engine, _ := newTestRouter(t)
	buf, contentType := multipartUpload(t, map[string][]byte{"notes.txt": []byte("file body text")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["document_id"])
	meta := body["metadata"].(map[string]interface{})
	assert.Equal(t, "notes.txt", meta["filename"])
}

func TestUploadUnsupportedFile(t *testing.T) {
	engine, _ := newTestRouter(t)
	buf, contentType := multipartUpload(t, map[string][]byte{"deck.pptx": []byte("binary")})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUploadMultiFilePartialFailure(t *testing.T) {
	engine, _ := newTestRouter(t)
	buf, contentType := multipartUpload(t, map[string][]byte{
		"good.txt": []byte("valid text content"),
		"bad.bin":  []byte{0x00, 0x01},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	results := body["results"].([]interface{})
	require.Len(t, results, 2)

	byName := map[string]map[string]interface{}{}
	for _, r := range results {
		item := r.(map[string]interface{})
		byName[item["filename"].(string)] = item
	}
	assert.Equal(t, true, byName["good.txt"]["success"])
	assert.NotEmpty(t, byName["good.txt"]["document_id"])
	assert.Equal(t, false, byName["bad.bin"]["success"])
	assert.NotEmpty(t, byName["bad.bin"]["error"])

	// the good sibling really was indexed
	_, stats := doJSON(t, engine, http.MethodGet, "/api/v1/stats", nil)
	assert.Equal(t, float64(1), stats["total_documents"])
}

func TestListDocumentsWithFilters(t *testing.T) {
	engine, _ := newTestRouter(t)
	for i := 0; i < 2; i++ {
		_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/documents/upload", map[string]interface{}{
			"text":        fmt.Sprintf("document number %d", i),
			"document_id": fmt.Sprintf("doc%d", i),
			"metadata":    map[string]interface{}{"idx": fmt.Sprintf("%d", i)},
		})
	}

	w, body := doJSON(t, engine, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["total"])

	w, body = doJSON(t, engine, http.MethodGet, "/api/v1/documents?filters=%7B%22idx%22%3A%221%22%7D", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["total"])

	w, _ = doJSON(t, engine, http.MethodGet, "/api/v1/documents?filters=notjson", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, engine, http.MethodGet, "/api/v1/documents?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDocument(t *testing.T) {
	engine, _ := newTestRouter(t)
	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/documents/upload", map[string]interface{}{
		"text":        "to be deleted",
		"document_id": "doc1",
	})

	w, body := doJSON(t, engine, http.MethodDelete, "/api/v1/documents/delete", map[string]interface{}{"document_id": "doc1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "doc1", body["document_id"])
	assert.Equal(t, float64(1), body["chunks_deleted"])

	w, body = doJSON(t, engine, http.MethodDelete, "/api/v1/documents/delete", map[string]interface{}{"document_id": "doc1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["success"])
}

func TestQueryEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)
	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/documents/upload", map[string]interface{}{
		"text":        "The sky is blue.",
		"document_id": "doc1",
	})

	w, body := doJSON(t, engine, http.MethodPost, "/api/v1/query", map[string]interface{}{
		"query": "What color is the sky?",
		"top_k": 1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "generated answer", body["answer"])
	assert.Len(t, body["sources"], 1)
	assert.Equal(t, "semantic", body["retrieval_method"])

	w, body = doJSON(t, engine, http.MethodPost, "/api/v1/query", map[string]interface{}{"query": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["success"])

	w, _ = doJSON(t, engine, http.MethodPost, "/api/v1/query", map[string]interface{}{"query": "q", "top_k": 999})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)
	_, _ = doJSON(t, engine, http.MethodPost, "/api/v1/query", map[string]interface{}{"query": "first question"})

	w, body := doJSON(t, engine, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["history"].([]interface{})
	require.Len(t, entries, 1)
	assert.Equal(t, "first question", entries[0].(map[string]interface{})["query"])
}

func TestGenerateCampaignEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)

	w, body := doJSON(t, engine, http.MethodPost, "/api/v1/generate-campaign", map[string]interface{}{
		"product_name":        "Acme Widget",
		"product_description": "a well made widget",
		"target_audience":     "makers",
		"campaign_goal":       "awareness",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	campaign := body["campaign"].(map[string]interface{})
	assert.Equal(t, "Acme Widget", campaign["product"])
	assert.Len(t, campaign["stages"], 4)
	assert.NotEmpty(t, campaign["plan"])

	w, _ = doJSON(t, engine, http.MethodPost, "/api/v1/generate-campaign", map[string]interface{}{
		"product_name": "Acme Widget",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
