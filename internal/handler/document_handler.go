package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/internal/model"
	"github.com/askdocs/askdocs/internal/pkg/response"
	"github.com/askdocs/askdocs/internal/service"
)

type DocumentHandler struct {
	documents *service.DocumentService
}

func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type indexTextRequest struct {
	Text       string         `json:"text"`
	DocumentID string         `json:"document_id"`
	Metadata   model.Metadata `json:"metadata"`
}

type uploadItemResult struct {
	Filename    string         `json:"filename"`
	Success     bool           `json:"success"`
	DocumentID  string         `json:"document_id,omitempty"`
	ChunksAdded int            `json:"chunks_added,omitempty"`
	Metadata    model.Metadata `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Upload indexes content. Multipart requests carry one or more files under
// the "file" field; JSON requests carry raw text. Multi-file uploads report
// a result per file so one bad file does not discard its siblings.
func (h *DocumentHandler) Upload(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.uploadFiles(c)
		return
	}
	h.indexText(c)
}

func (h *DocumentHandler) indexText(c *gin.Context) {
	var req indexTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.documents.IndexText(c.Request.Context(), req.Text, req.DocumentID, req.Metadata)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"success":      true,
		"document_id":  result.DocumentID,
		"chunks_added": result.ChunksAdded,
		"metadata":     result.Metadata,
	})
}

func (h *DocumentHandler) uploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid multipart form")
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, "file is required")
		return
	}

	var metadata model.Metadata
	if raw := c.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			response.Error(c, http.StatusBadRequest, "metadata must be a JSON object")
			return
		}
	}

	if len(files) == 1 {
		data, err := readMultipartFile(files[0])
		if err != nil {
			response.Error(c, http.StatusBadRequest, "failed to read file")
			return
		}
		result, err := h.documents.IndexFile(c.Request.Context(), files[0].Filename, data, metadata)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"success":      true,
			"document_id":  result.DocumentID,
			"chunks_added": result.ChunksAdded,
			"metadata":     result.Metadata,
		})
		return
	}

	results := make([]uploadItemResult, 0, len(files))
	failures := 0
	for _, fh := range files {
		item := uploadItemResult{Filename: fh.Filename}
		data, err := readMultipartFile(fh)
		if err == nil {
			var res *service.IndexResult
			res, err = h.documents.IndexFile(c.Request.Context(), fh.Filename, data, metadata)
			if err == nil {
				item.Success = true
				item.DocumentID = res.DocumentID
				item.ChunksAdded = res.ChunksAdded
				item.Metadata = res.Metadata
			}
		}
		if err != nil {
			failures++
			item.Error = err.Error()
		}
		results = append(results, item)
	}
	response.Success(c, http.StatusOK, gin.H{
		"success": failures == 0,
		"results": results,
	})
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *DocumentHandler) List(c *gin.Context) {
	var filters model.Metadata
	if raw := c.Query("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filters); err != nil {
			response.Error(c, http.StatusBadRequest, "filters must be a JSON object")
			return
		}
	}
	limit := 0
	if value := c.Query("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			response.Error(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	result, err := h.documents.List(c.Request.Context(), filters, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

type deleteRequest struct {
	DocumentID string `json:"document_id"`
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	deleted, err := h.documents.Delete(c.Request.Context(), req.DocumentID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"success":        true,
		"document_id":    req.DocumentID,
		"chunks_deleted": deleted,
	})
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	total, err := h.documents.Stats(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"total_documents": total})
}
