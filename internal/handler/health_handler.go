package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/internal/pkg/response"
	"github.com/askdocs/askdocs/internal/service"
	"github.com/askdocs/askdocs/internal/store"
)

type HealthHandler struct {
	store     store.Store
	documents *service.DocumentService
	service   string
	version   string
}

func NewHealthHandler(st store.Store, documents *service.DocumentService, serviceName, version string) *HealthHandler {
	return &HealthHandler{store: st, documents: documents, service: serviceName, version: version}
}

// Health reports liveness plus store reachability. A degraded store still
// answers, with 503, so probes can tell "down" from "unreachable backend".
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": h.service,
		"version": h.version,
	}
	if err := h.store.Ping(c.Request.Context()); err != nil {
		body["status"] = "degraded"
		response.Success(c, http.StatusServiceUnavailable, body)
		return
	}
	if total, err := h.documents.Stats(c.Request.Context()); err == nil {
		body["stats"] = gin.H{"total_documents": total}
	}
	response.Success(c, http.StatusOK, body)
}
