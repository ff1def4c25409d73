package handler

import (
	"github.com/gin-gonic/gin"
)

// Response is the success envelope returned by both webhook endpoints.
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents error response structure.
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// okResponse creates a success response with an optional data payload.
func okResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(200, Response{Message: message, Data: data})
}

// errorResponse creates an error response.
func errorResponse(c *gin.Context, code string, message string, statusCode int) {
	resp := ErrorResponse{}
	resp.Error.Code = code
	resp.Error.Message = message
	c.JSON(statusCode, resp)
}

// notFoundResponse creates 404 error response.
func notFoundResponse(c *gin.Context, message string) {
	errorResponse(c, "NOT_FOUND", message, 404)
}
