package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type halfBody struct{ sent bool }

func (b *halfBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, `{"model":"gpt`), nil
	}
	return 0, errors.New("connection reset by peer")
}

func serveBehindLogger(t *testing.T, body io.Reader, contentLength int64) (data []byte, err error) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewLogger(zap.NewNop(), &telemetry.Trace{}).LoggerHandler())
	router.POST("/v1/*path", func(c *gin.Context) {
		data, err = io.ReadAll(c.Request.Body)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", body)
	req.ContentLength = contentLength
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)
	return data, err
}

func TestLoggerLeavesBodyIntact(t *testing.T) {
	payload := `{"model":"gpt-4o","stream":false}`
	data, err := serveBehindLogger(t, strings.NewReader(payload), int64(len(payload)))

	assert.NoError(t, err)
	assert.Equal(t, payload, string(data))
}

func TestLoggerReplaysBodyReadError(t *testing.T) {
	data, err := serveBehindLogger(t, &halfBody{}, 64)

	assert.EqualError(t, err, "connection reset by peer")
	assert.Equal(t, `{"model":"gpt`, string(data))
}

func TestToSafePreview(t *testing.T) {
	assert.Equal(t, "", toSafePreview(nil, 10))
	assert.Equal(t, "abc", toSafePreview([]byte("abc"), 10))
	assert.Equal(t, "ab…", toSafePreview([]byte("abcdef"), 2))
	assert.True(t, strings.HasPrefix(toSafePreview([]byte{0xff, 0xfe}, 10), "b64:"))
}
