package helpers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newErrorResponse(statusCode int, message string) ErrorResponse {
	return ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, newErrorResponse(statusCode, customMessage))
}

// AbortWithError stops the handler chain, for use in middleware.
func AbortWithError(c *gin.Context, statusCode int, customMessage string) {
	c.AbortWithStatusJSON(statusCode, newErrorResponse(statusCode, customMessage))
}
