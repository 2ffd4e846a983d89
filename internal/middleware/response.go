package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mme/internal/core"
	cErr "mme/internal/pkg/error"
	"mme/internal/pkg/response"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Response struct {
	logger *zap.Logger
	trace  *telemetry.Trace
}

func NewResponse(logger *zap.Logger, trace *telemetry.Trace) *Response {
	return &Response{logger: logger, trace: trace}
}

// FormatHandler wraps handler data (c.Set("data")) in the standard envelope.
// Proxy routes write their own bytes and are only logged.
func (middleware *Response) FormatHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if untraced(c.FullPath()) {
			c.Next()
			return
		}

		requestTime := time.Now()
		if startTime, exists := c.Get("requestDuration"); exists {
			if t, ok := startTime.(time.Time); ok {
				requestTime = t
			}
		}

		c.Next()

		requestID := c.GetString(core.ContextRequestIDKey)
		statusCode := c.Writer.Status()
		if isPassthrough(c) {
			middleware.logger.Info("[Response] proxy",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Int("status", statusCode),
				zap.Duration("duration", time.Since(requestTime)),
				zap.String("requestId", requestID),
				zap.String("proxyConfigId", c.GetString(core.ContextProxyConfigKey)),
			)
			return
		}
		// Recovery renders errors; a handler that wrote on its own is left alone
		if len(c.Errors) > 0 || c.Writer.Written() {
			return
		}
		if statusCode >= http.StatusBadRequest {
			response.AbortWithError(c, cErr.MapHttpStatusToError(statusCode, "request error"))
			return
		}

		_, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanResponseMiddleware))
		defer end(nil)

		data, _ := c.Get("data")
		if data == nil {
			data = map[string]any{}
		}
		message := "Request Success"
		if s, ok := c.Get("message"); ok {
			if m, ok := s.(string); ok && m != "" {
				message = m
			}
		}
		duration := time.Since(requestTime)
		traceID := span.SpanContext().TraceID()

		middleware.trace.ApplyTraceAttributes(span, core.TraceResponseMeta{
			Path:       c.Request.URL.Path,
			Method:     c.Request.Method,
			Status:     statusCode,
			Message:    message,
			DurationMs: float64(duration.Milliseconds()),
			Data:       safePreviewJSON(data, 2000),
		})
		middleware.logger.Info("[Response] "+message,
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.String("requestId", requestID),
			zap.String("traceId", fmt.Sprintf("%x", traceID[:])),
		)

		jsonBytes, err := json.Marshal(response.Response{
			RequestID:   requestID,
			Code:        cErr.SUCCESS,
			Data:        data,
			Message:     "OK",
			Description: message,
		})
		if err != nil {
			response.AbortWithError(c, cErr.InternalServer("marshal response failed"))
			return
		}
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Writer.WriteHeader(statusCode)
		if _, werr := c.Writer.Write(jsonBytes); werr != nil {
			middleware.logger.Warn("write response failed", zap.Error(werr), zap.String("requestId", requestID))
		}
	}
}

// safePreviewJSON renders data as JSON text capped at max bytes.
func safePreviewJSON(data any, max int) string {
	var out string
	switch v := data.(type) {
	case string:
		var js any
		if err := json.Unmarshal([]byte(v), &js); err != nil {
			out = v
			break
		}
		b, _ := json.Marshal(js)
		out = string(b)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("[marshal error: %v]", err)
		}
		out = string(b)
	}
	if len(out) > max {
		return out[:max] + "…"
	}
	return out
}
