package middleware

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"mme/internal/core"
	"mme/internal/pkg/header"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const bodyPreviewBytes = 2000

type Logger struct {
	logger *zap.Logger
	trace  *telemetry.Trace
}

func NewLogger(logger *zap.Logger, trace *telemetry.Trace) *Logger {
	return &Logger{logger: logger, trace: trace}
}

// LoggerHandler logs every request with a body preview. Binary bodies are
// not read; Authorization never reaches the log.
func (m *Logger) LoggerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if untraced(endpoint) {
			c.Next()
			return
		}

		_, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanLoggerMiddleware))

		mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
		var bodyRaw string
		switch {
		case strings.HasSuffix(endpoint, "/auth/login"):
			bodyRaw = "(redacted)"
		case isBinaryContent(mediaType):
			if c.Request.ContentLength > 0 {
				bodyRaw = fmt.Sprintf("(binary %s, %d bytes)", mediaType, c.Request.ContentLength)
			} else {
				bodyRaw = fmt.Sprintf("(binary %s)", mediaType)
			}
		case c.Request.Body != nil && c.Request.ContentLength != 0:
			data, err := io.ReadAll(c.Request.Body)
			c.Request.Body = replayBody(c.Request.Body, data, err)
			bodyRaw = toSafePreview(data, bodyPreviewBytes)
			if err != nil {
				bodyRaw = fmt.Sprintf("(read failed after %d bytes: %v)", len(data), err)
			}
		}

		headers := header.Sanitize(c.Request.Header)
		meta := core.LoggerRequestMeta{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			FullPath:   endpoint,
			Query:      c.Request.URL.RawQuery,
			Body:       bodyRaw,
			Host:       c.Request.Host,
			UserAgent:  c.Request.UserAgent(),
			ContentLen: c.Request.ContentLength,
			Proto:      c.Request.Proto,
			ClientIP:   c.ClientIP(),
			Headers:    headers,
		}
		m.trace.ApplyTraceAttributes(span, meta)

		traceID := span.SpanContext().TraceID()
		fields := []zap.Field{
			zap.String("requestId", c.GetString(core.ContextRequestIDKey)),
			zap.String("method", meta.Method),
			zap.String("path", meta.Path),
			zap.Any("headers", headers),
		}
		if meta.Query != "" {
			fields = append(fields, zap.String("query", meta.Query))
		}
		if bodyRaw != "" {
			fields = append(fields, zap.String("body", bodyRaw))
		}
		fields = append(fields, zap.String("traceId", fmt.Sprintf("%x", traceID[:])))
		m.logger.Info("[Request]", fields...)
		end(nil)

		c.Next()
	}
}

// replayBody hands the bytes already read back to the handlers. A read
// error is replayed after them so a partial body is never seen as complete.
func replayBody(orig io.ReadCloser, data []byte, readErr error) io.ReadCloser {
	var r io.Reader = bytes.NewReader(data)
	if readErr != nil {
		r = io.MultiReader(r, failingReader{err: readErr})
	}
	return struct {
		io.Reader
		io.Closer
	}{r, orig}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

// toSafePreview truncates UTF-8 text and base64-encodes anything else.
func toSafePreview(b []byte, max int) string {
	if len(b) == 0 {
		return ""
	}
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

func isBinaryContent(mediaType string) bool {
	return strings.HasPrefix(mediaType, "multipart/") ||
		strings.HasPrefix(mediaType, "image/") ||
		strings.HasPrefix(mediaType, "audio/") ||
		strings.HasPrefix(mediaType, "video/") ||
		mediaType == "application/octet-stream"
}
