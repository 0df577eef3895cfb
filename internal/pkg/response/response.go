package response

import "github.com/gin-gonic/gin"

// errorBody is the uniform error envelope every endpoint returns on failure.
type errorBody struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, errorBody{Success: false, Error: message})
}

func ErrorDetails(c *gin.Context, status int, message string, details map[string]interface{}) {
	c.JSON(status, errorBody{Success: false, Error: message, Details: details})
}
