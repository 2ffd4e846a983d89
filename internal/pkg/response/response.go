package response

import (
	"errors"
	"net/http"

	"mme/internal/core"
	cErr "mme/internal/pkg/error"

	"github.com/gin-gonic/gin"
)

type Response struct {
	RequestID   string `json:"requestID"`
	Code        int    `json:"code"`
	Data        any    `json:"data"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// ProxyError is the flat body written on proxy routes.
type ProxyError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Create(c *gin.Context, data any) {
	message := "Create Success"
	if msg, ok := data.(gin.H); ok {
		if m, ok := msg["message"].(string); ok && m != "" {
			message = m
			delete(msg, "message")
		}
	}
	c.Set("data", data)
	c.Set("message", message)
	c.Abort()
}

func Success(c *gin.Context, data any) {
	message := "Request Success"
	if msg, ok := data.(gin.H); ok {
		if m, ok := msg["message"].(string); ok && m != "" {
			message = m
			delete(msg, "message")
		}
	}
	c.Set("data", data)
	c.Set("message", message)
	c.Abort()
}

func AbortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

func Fail(c *gin.Context, RequestID string, httpCode int, errorCode int, msg string, desc string) {
	c.JSON(httpCode, Response{
		RequestID:   RequestID,
		Code:        errorCode,
		Data:        nil,
		Message:     msg,
		Description: desc,
	})
	c.Abort()
}

func FailByErr(c *gin.Context, RequestID string, err error) {
	var v *cErr.Error
	if errors.As(err, &v) {
		Fail(c, RequestID, v.HttpCode(), v.ErrorCode(), v.Error(), v.ErrorDesc())
		return
	}
	Fail(c, RequestID, http.StatusInternalServerError, cErr.INTERNAL_ERROR, err.Error(), "internal error")
}

// ProxyFail writes {"error": msg} (plus "message" when detail is set) and
// marks the context so the envelope middleware leaves it alone.
func ProxyFail(c *gin.Context, status int, msg string, detail string) {
	c.Set(core.ContextPassthroughKey, true)
	c.AbortWithStatusJSON(status, ProxyError{Error: msg, Message: detail})
}
