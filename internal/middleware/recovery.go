package middleware

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"mme/internal/core"
	cErr "mme/internal/pkg/error"
	res "mme/internal/pkg/response"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Recovery struct {
	logger *zap.Logger
	trace  *telemetry.Trace
	metric *telemetry.Metric
}

func NewRecovery(logger *zap.Logger, trace *telemetry.Trace, metric *telemetry.Metric) *Recovery {
	return &Recovery{logger: logger, trace: trace, metric: metric}
}

// ErrorHandler recovers panics and renders errors collected on the gin
// context. Proxy routes get the flat {"error": ...} body, everything else
// the envelope. Nothing is rewritten once the response has started.
func (middleware *Recovery) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestTime := time.Now()
		if startTime, exists := c.Get("requestDuration"); exists {
			if t, ok := startTime.(time.Time); ok {
				requestTime = t
			}
		}

		// must be registered before c.Next()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			duration := time.Since(requestTime)
			_, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanRecoveryMiddleware))

			meta := core.TracePanicMeta{
				Path:       c.Request.URL.Path,
				Method:     c.Request.Method,
				ClientIP:   c.ClientIP(),
				UserAgent:  c.Request.UserAgent(),
				DurationMs: float64(duration.Milliseconds()),
				Message:    toSafeString(fmt.Sprint(rec)),
				Stack:      toSafeStack(debug.Stack()),
				Status:     http.StatusInternalServerError,
			}
			middleware.trace.ApplyTraceAttributes(span, meta)
			middleware.logger.Error("[PANIC] Recovered",
				zap.String("path", meta.Path),
				zap.String("method", meta.Method),
				zap.String("client_ip", meta.ClientIP),
				zap.Duration("duration", duration),
				zap.String("panic", meta.Message),
				zap.String("stacktrace", meta.Stack),
				zap.String("requestId", c.GetString(core.ContextRequestIDKey)),
			)
			middleware.metric.ProxyFailed("panic")

			err := cErr.InternalServer("unexpected panic")
			end(err)
			if !c.Writer.Written() {
				if isPassthrough(c) {
					res.ProxyFail(c, http.StatusInternalServerError, core.ProxyErrInternal, meta.Message)
				} else {
					res.FailByErr(c, c.GetString(core.ContextRequestIDKey), err)
				}
			}
			c.Abort()
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		duration := time.Since(requestTime)
		requestID := c.GetString(core.ContextRequestIDKey)

		// the response already went out, e.g. a stream cut short
		if c.Writer.Written() {
			middleware.logger.Warn("[ERROR] after response started",
				zap.String("path", c.Request.URL.Path),
				zap.String("error", c.Errors.String()),
				zap.Int("status", c.Writer.Status()),
				zap.Duration("duration", duration),
				zap.String("requestId", requestID),
			)
			return
		}

		_, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanRecoveryMiddleware))
		for _, e := range c.Errors {
			var appErr *cErr.Error
			if !errors.As(e.Err, &appErr) {
				continue
			}
			middleware.trace.ApplyTraceAttributes(span, core.TraceErrorMeta{
				Code:       appErr.ErrorCode(),
				Message:    appErr.Error(),
				Detail:     appErr.ErrorDesc(),
				Status:     appErr.HttpCode(),
				DurationMs: float64(duration.Milliseconds()),
			})
			middleware.logger.Warn(appErr.Error(),
				zap.Int("code", appErr.ErrorCode()),
				zap.String("data", appErr.ErrorDesc()),
				zap.Duration("duration", duration),
				zap.String("requestId", requestID),
			)
			end(appErr)
			res.FailByErr(c, requestID, appErr)
			c.Abort()
			return
		}

		unknown := c.Errors.String()
		middleware.trace.ApplyTraceAttributes(span, core.TraceErrorMeta{
			Code:       cErr.INTERNAL_ERROR,
			Message:    "unknown-error",
			Detail:     toSafeString(unknown),
			Status:     http.StatusInternalServerError,
			DurationMs: float64(duration.Milliseconds()),
		})
		middleware.logger.Warn("[ERROR] unknown",
			zap.String("error", unknown),
			zap.Duration("duration", duration),
			zap.String("requestId", requestID),
		)
		end(errors.New(unknown))
		res.Fail(c, requestID, http.StatusInternalServerError, cErr.INTERNAL_ERROR, "unknown-error", unknown)
		c.Abort()
	}
}

func isPassthrough(c *gin.Context) bool {
	raw, ok := c.Get(core.ContextPassthroughKey)
	if !ok {
		return false
	}
	b, _ := raw.(bool)
	return b
}

func toSafeString(s string) string {
	const max = 8000
	if utf8.ValidString(s) {
		if len(s) > max {
			return s[:max] + "…"
		}
		return s
	}
	b := []byte(s)
	if len(b) > max {
		b = b[:max]
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}

func toSafeStack(b []byte) string {
	const max = 16000
	if utf8.Valid(b) {
		if len(b) > max {
			return string(b[:max]) + "…"
		}
		return string(b)
	}
	if len(b) > max {
		b = b[:max]
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}
