package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askdocs/askdocs/internal/pkg/response"
	"github.com/askdocs/askdocs/internal/service"
)

type CampaignHandler struct {
	campaigns *service.CampaignService
}

func NewCampaignHandler(campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

func (h *CampaignHandler) Generate(c *gin.Context) {
	var brief service.CampaignBrief
	if err := c.ShouldBindJSON(&brief); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.campaigns.Generate(c.Request.Context(), brief)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"success": true, "campaign": result})
}
