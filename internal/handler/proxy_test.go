package handler

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mme/config"
	"mme/internal/database/mongodb/model"
	"mme/internal/middleware"
	"mme/internal/pkg/capture"
	"mme/internal/service"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type stubResolver struct {
	configs map[string]*model.ProxyConfig
	err     error
}

func (r *stubResolver) Resolve(_ context.Context, token string) (*model.ProxyConfig, error) {
	if r.err != nil {
		return nil, r.err
	}
	cfg, ok := r.configs[token]
	if !ok {
		return nil, nil
	}
	if !cfg.Enabled {
		return cfg, service.ErrProxyConfigDisabled
	}
	return cfg, nil
}

type recordingSink struct {
	mu        sync.Mutex
	records   []*model.ApiRequestLog
	onEnqueue func(*model.ApiRequestLog)
}

func (s *recordingSink) Enqueue(requestLog *model.ApiRequestLog) {
	if s.onEnqueue != nil {
		s.onEnqueue(requestLog)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, requestLog)
}

func (s *recordingSink) all() []*model.ApiRequestLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.ApiRequestLog(nil), s.records...)
}

type gatewayFixture struct {
	router   *gin.Engine
	handler  *ProxyHandler
	sink     *recordingSink
	resolver *stubResolver
}

func newGatewayFixture(t *testing.T, configs ...*model.ProxyConfig) *gatewayFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := &config.Configuration{}
	conf.ApplyDefaults()

	resolver := &stubResolver{configs: map[string]*model.ProxyConfig{}}
	for _, cfg := range configs {
		resolver.configs[cfg.BearerToken] = cfg
	}
	sink := &recordingSink{}
	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	forwarder := service.NewProxyService(&telemetry.Trace{}, client)

	h := newProxyHandler(conf.Proxy, zap.NewNop(), &telemetry.Trace{}, &telemetry.Metric{}, resolver, forwarder, sink)
	router := gin.New()
	router.Any(conf.Proxy.Prefix+"/*path", h.Handle)
	return &gatewayFixture{router: router, handler: h, sink: sink, resolver: resolver}
}

// mount serves the gateway behind the given middleware chain.
func (f *gatewayFixture) mount(middlewares ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middlewares...)
	router.Any("/v1/*path", f.handler.Handle)
	return router
}

func (f *gatewayFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func proxyConfigFor(target string) *model.ProxyConfig {
	return &model.ProxyConfig{
		ID:              primitive.NewObjectID(),
		Name:            "openai",
		TargetURL:       target,
		APIKey:          "sk-upstream",
		BearerToken:     "pk-test",
		Enabled:         true,
		TimeoutSeconds:  5,
		LogRequestBody:  true,
		LogResponseBody: true,
	}
}

func TestGatewayRejectsMissingAuthorization(t *testing.T) {
	f := newGatewayFixture(t)

	rec := f.do(http.MethodPost, "/v1/chat/completions", "", `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Missing or invalid authorization header"}`, rec.Body.String())
	assert.Empty(t, f.sink.all())
}

func TestGatewayRejectsUnknownToken(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer upstream.Close()
	f := newGatewayFixture(t, proxyConfigFor(upstream.URL))

	rec := f.do(http.MethodPost, "/v1/chat/completions", "pk-unknown", `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid bearer token"}`, rec.Body.String())
	assert.Zero(t, calls)
	assert.Empty(t, f.sink.all())
}

func TestGatewayDisabledConfigIsAudited(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	cfg.Enabled = false
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Proxy configuration is disabled"}`, rec.Body.String())
	assert.Zero(t, calls)
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusBadRequest, records[0].ResponseStatusCode)
	assert.Equal(t, cfg.ID, *records[0].ProxyConfigID)
	assert.NotEmpty(t, records[0].ErrorMessage)
}

func TestGatewayResolverFailure(t *testing.T) {
	f := newGatewayFixture(t)
	f.resolver.err = errors.New("mongo unreachable")

	rec := f.do(http.MethodPost, "/v1/chat/completions", "pk-any", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Internal server error"`)
	assert.Empty(t, f.sink.all())
}

func TestGatewayBufferedExchange(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Authorization", "leaked")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"choices":[],"usage":{"total_tokens":42}}`)
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)

	reqBody := `{"model":"gpt-4o","messages":[]}`
	rec := f.do(http.MethodPost, "/v1/chat/completions?api-version=2", cfg.BearerToken, reqBody)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"choices":[],"usage":{"total_tokens":42}}`, rec.Body.String())

	require.NotNil(t, got)
	assert.Equal(t, "/v1/chat/completions", got.URL.Path)
	assert.Equal(t, "api-version=2", got.URL.RawQuery)
	assert.Equal(t, "Bearer sk-upstream", got.Header.Get("Authorization"))
	assert.Equal(t, reqBody, string(gotBody))

	records := f.sink.all()
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, `{"total_tokens":42}`, r.TokenUsage)
	assert.Equal(t, "gpt-4o", r.Model)
	assert.Equal(t, reqBody, r.RequestBody)
	assert.Equal(t, "/v1/chat/completions?api-version=2", r.RequestPath)
	assert.Equal(t, upstream.URL+"/v1/chat/completions?api-version=2", r.TargetURL)
	assert.False(t, r.Streaming)
	require.NotNil(t, r.ResponseTime)
	assert.Equal(t, r.ResponseTime.Sub(r.RequestTime).Milliseconds(), r.DurationMs)
	assert.NotContains(t, r.RequestHeaders, "Authorization")
	assert.NotContains(t, r.ResponseHeaders, "Authorization")
	assert.Empty(t, r.ErrorMessage)
}

func TestGatewayRespectsLogFlags(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"usage":{"total_tokens":1}}`)
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	cfg.LogRequestBody = false
	cfg.LogResponseBody = false
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/embeddings", cfg.BearerToken, `{"model":"e"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Empty(t, records[0].RequestBody)
	assert.Empty(t, records[0].ResponseBody)
	assert.Equal(t, `{"total_tokens":1}`, records[0].TokenUsage)
}

func TestGatewayDecodesGzip(t *testing.T) {
	const plain = `{"id":"x","usage":{"total_tokens":7}}`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(plain))
		_ = zw.Close()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf.Bytes())
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, plain, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, plain, records[0].ResponseBody)
	assert.Equal(t, `{"total_tokens":7}`, records[0].TokenUsage)
}

func TestGatewayStreamsAndExtractsUsage(t *testing.T) {
	frames := []string{
		"data: {\"id\":\"x\",\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}],\"usage\":{\"total_tokens\":5}}\n\n",
		"data: [DONE]\n\n",
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, frame := range frames {
			_, _ = io.WriteString(w, frame)
			w.(http.Flusher).Flush()
		}
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{"model":"gpt-4o","stream":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, strings.Join(frames, ""), rec.Body.String())
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, rec.Flushed)

	records := f.sink.all()
	require.Len(t, records, 1)
	r := records[0]
	assert.True(t, r.Streaming)
	assert.False(t, r.Truncated)
	assert.Equal(t, `{"total_tokens":5}`, r.TokenUsage)
	assert.Equal(t, strings.Join(frames, ""), r.ResponseBody)
}

func TestGatewayStreamCaptureIsCapped(t *testing.T) {
	chunk := strings.Repeat("a", 64*1024)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 20; i++ {
			_, _ = io.WriteString(w, chunk)
		}
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{"stream":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 20*len(chunk), rec.Body.Len())
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.True(t, records[0].Truncated)
	assert.True(t, strings.HasSuffix(records[0].ResponseBody, capture.TruncationMarker))
	assert.Len(t, records[0].ResponseBody, capture.DefaultMaxBytes+len(capture.TruncationMarker))
}

func TestGatewayBadGateway(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	target := dead.URL
	dead.Close()
	cfg := proxyConfigFor(target)
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Bad gateway"`)
	assert.Contains(t, rec.Body.String(), `"message":`)
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusBadGateway, records[0].ResponseStatusCode)
	assert.Nil(t, records[0].ResponseTime)
	assert.NotEmpty(t, records[0].ErrorMessage)
}

func TestGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer upstream.Close()
	defer close(release)
	cfg := proxyConfigFor(upstream.URL)
	cfg.TimeoutSeconds = 1
	f := newGatewayFixture(t, cfg)

	started := time.Now()
	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{}`)

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.JSONEq(t, `{"error":"Gateway timeout"}`, rec.Body.String())
	assert.Less(t, time.Since(started), 4*time.Second)
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusGatewayTimeout, records[0].ResponseStatusCode)
}

func TestGatewayPassesUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down"}}`)
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"slow down"}}`, rec.Body.String())
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusTooManyRequests, records[0].ResponseStatusCode)
	assert.Empty(t, records[0].ErrorMessage)
}

// resetBody yields part of a JSON document and then fails like a dropped connection.
type resetBody struct{ sent bool }

func (b *resetBody) Read(p []byte) (int, error) {
	if !b.sent {
		b.sent = true
		return copy(p, `{"model":"gpt`), nil
	}
	return 0, errors.New("connection reset by peer")
}

func TestGatewayBodyReadFailureBehindRequestLogger(t *testing.T) {
	var calls int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)
	router := f.mount(middleware.NewLogger(zap.NewNop(), &telemetry.Trace{}).LoggerHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", &resetBody{})
	req.ContentLength = 64
	req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Unable to read request body"`)
	assert.Zero(t, calls)
	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusBadRequest, records[0].ResponseStatusCode)
	assert.Contains(t, records[0].ErrorMessage, "connection reset by peer")
	assert.Nil(t, records[0].ResponseTime)
}

func TestGatewayUpstreamResetMidStream(t *testing.T) {
	first := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n"
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		conn, buf, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nContent-Length: 4096\r\n\r\n" + first)
		_ = buf.Flush()
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)

	rec := f.do(http.MethodPost, "/v1/chat/completions", cfg.BearerToken, `{"stream":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, rec.Body.String())
	records := f.sink.all()
	require.Len(t, records, 1)
	r := records[0]
	assert.True(t, r.Streaming)
	assert.Equal(t, http.StatusOK, r.ResponseStatusCode)
	assert.Equal(t, first, r.ResponseBody)
	assert.Contains(t, r.ErrorMessage, "unexpected EOF")
	assert.Nil(t, r.ResponseTime)
}

func TestGatewayClientDisconnectMidStream(t *testing.T) {
	first := "data: {\"choices\":[]}\n\n"
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, first)
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer upstream.Close()
	cfg := proxyConfigFor(upstream.URL)
	f := newGatewayFixture(t, cfg)
	gateway := httptest.NewServer(f.router)
	defer gateway.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gateway.URL+"/v1/chat/completions", strings.NewReader(`{"stream":true}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	resp, err := (&http.Client{Transport: &http.Transport{}}).Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, first[:len(first)-1], line)
	cancel()
	_ = resp.Body.Close()

	require.Eventually(t, func() bool { return len(f.sink.all()) == 1 }, 5*time.Second, 10*time.Millisecond)
	r := f.sink.all()[0]
	assert.True(t, r.Streaming)
	assert.Equal(t, first, r.ResponseBody)
	assert.NotEmpty(t, r.ErrorMessage)
	assert.Nil(t, r.ResponseTime)
}

type panickingForwarder struct{}

func (panickingForwarder) Forward(context.Context, service.ForwardParams) (*service.Upstream, error) {
	panic("forwarder exploded")
}

func TestGatewayPanicRespondsBeforeAuditing(t *testing.T) {
	cfg := proxyConfigFor("http://127.0.0.1:1")
	f := newGatewayFixture(t, cfg)
	f.handler.forwarder = panickingForwarder{}
	router := f.mount(middleware.NewRecovery(zap.NewNop(), &telemetry.Trace{}, &telemetry.Metric{}).ErrorHandler())

	rec := httptest.NewRecorder()
	var statusAtEnqueue int
	var bodyAtEnqueue string
	f.sink.onEnqueue = func(*model.ApiRequestLog) {
		statusAtEnqueue = rec.Code
		bodyAtEnqueue = rec.Body.String()
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+cfg.BearerToken)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"Internal server error"`)
	assert.Equal(t, http.StatusInternalServerError, statusAtEnqueue)
	assert.NotEmpty(t, bodyAtEnqueue)

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, http.StatusInternalServerError, records[0].ResponseStatusCode)
	assert.Contains(t, records[0].ErrorMessage, "forwarder exploded")
	assert.Nil(t, records[0].ResponseTime)
}
