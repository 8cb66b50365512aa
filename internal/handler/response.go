package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiResponse is the envelope every endpoint returns. Reason carries a
// stable machine-readable code for rejected bet operations so clients
// branch on it instead of parsing Message.
type apiResponse struct {
	Code    int            `json:"code"`
	Reason  string         `json:"reason,omitempty"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Reject reports a failed bet operation with its reason code.
func Reject(c *gin.Context, status int, reason, message string) {
	c.JSON(status, apiResponse{
		Code:    status,
		Reason:  reason,
		Message: message,
	})
}
