package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/askdocs/askdocs/internal/pkg/errors"
	"github.com/askdocs/askdocs/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	response.Error(c, statusOf(err), err.Error())
}

func statusOf(err error) int {
	switch {
	case appErr.IsValidation(err):
		return http.StatusBadRequest
	case appErr.IsNotFound(err):
		return http.StatusNotFound
	case appErr.Is(err, appErr.ErrUnsupportedFormat), appErr.Is(err, appErr.ErrExtraction):
		return http.StatusUnprocessableEntity
	case appErr.Is(err, appErr.ErrGeneration):
		return http.StatusBadGateway
	case appErr.IsStoreUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
