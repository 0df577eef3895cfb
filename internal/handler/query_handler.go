package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/internal/model"
	"github.com/askdocs/askdocs/internal/pkg/response"
	"github.com/askdocs/askdocs/internal/service"
)

type QueryHandler struct {
	queries *service.QueryService
}

func NewQueryHandler(queries *service.QueryService) *QueryHandler {
	return &QueryHandler{queries: queries}
}

type queryRequest struct {
	Query           string         `json:"query"`
	TopK            *int           `json:"top_k"`
	Filters         model.Metadata `json:"filters"`
	RetrievalMethod string         `json:"retrieval_method"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.queries.Query(c.Request.Context(), service.QueryInput{
		Query:   req.Query,
		TopK:    req.TopK,
		Filters: req.Filters,
		Method:  req.RetrievalMethod,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *QueryHandler) History(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"history": h.queries.History()})
}
