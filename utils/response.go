package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// API error codes: HTTP status * 100 + sequence.
const (
	CodeOK            = 0
	CodeItemNotFound  = 40401
	CodeRouteNotFound = 40400
	CodeInternal      = 50000
)

// Envelope is the uniform body of every /api response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Respond writes an Envelope with the given status code.
func Respond(ctx *gin.Context, status, code int, message string, data any) {
	ctx.JSON(status, Envelope{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data any) {
	Respond(ctx, http.StatusOK, CodeOK, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
