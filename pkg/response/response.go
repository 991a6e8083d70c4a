package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/stemkit-identity/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON writes body as-is. Auth results already carry success and message.
func JSON(c *gin.Context, status int, body interface{}) {
	noStore(c)
	c.JSON(status, body)
}

// Data wraps data in a success envelope.
func Data(c *gin.Context, status int, data interface{}) {
	JSON(c, status, Envelope{Success: true, Data: data})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, body interface{}) {
	JSON(c, http.StatusCreated, body)
}

// Error sends a failure envelope. Wrapped internal causes are never rendered.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	JSON(c, appErr.Status, Envelope{Success: false, Message: appErr.Message, Code: appErr.Code})
}

// Abort sends a failure envelope and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
