package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/internal/middleware"
)

type RouterDeps struct {
	Health    *HealthHandler
	Documents *DocumentHandler
	Queries   *QueryHandler
	Campaigns *CampaignHandler
	// CampaignWindow throttles campaign generation per client; zero disables.
	CampaignWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)
	api.GET("/stats", deps.Documents.Stats)

	api.POST("/documents/upload", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.DELETE("/documents/delete", deps.Documents.Delete)

	api.POST("/query", deps.Queries.Query)
	api.GET("/history", deps.Queries.History)

	if deps.Campaigns != nil {
		api.POST("/generate-campaign", middleware.RateLimit(deps.CampaignWindow), deps.Campaigns.Generate)
	}
}
