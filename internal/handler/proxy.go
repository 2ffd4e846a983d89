package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mme/config"
	"mme/internal/core"
	"mme/internal/database/mongodb/model"
	"mme/internal/pkg/capture"
	cErr "mme/internal/pkg/error"
	"mme/internal/pkg/header"
	"mme/internal/pkg/payload"
	"mme/internal/pkg/response"
	"mme/internal/service"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusClientClosedRequest is recorded when the caller hangs up before the
// exchange completes.
const StatusClientClosedRequest = 499

type ConfigResolver interface {
	Resolve(ctx context.Context, bearerToken string) (*model.ProxyConfig, error)
}

type Forwarder interface {
	Forward(ctx context.Context, params service.ForwardParams) (*service.Upstream, error)
}

type AuditSink interface {
	Enqueue(requestLog *model.ApiRequestLog)
}

type ProxyHandler struct {
	logger    *zap.Logger
	trace     *telemetry.Trace
	metric    *telemetry.Metric
	config    config.Proxy
	resolver  ConfigResolver
	forwarder Forwarder
	audit     AuditSink
	now       func() time.Time
}

func NewProxyHandler(
	conf *config.Configuration,
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	proxyConfigService *service.ProxyConfigService,
	proxyService *service.ProxyService,
	auditLogWriter *service.AuditLogWriter,
) *ProxyHandler {
	return newProxyHandler(conf.Proxy, logger, trace, metric, proxyConfigService, proxyService, auditLogWriter)
}

func newProxyHandler(
	conf config.Proxy,
	logger *zap.Logger,
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	resolver ConfigResolver,
	forwarder Forwarder,
	audit AuditSink,
) *ProxyHandler {
	return &ProxyHandler{
		logger:    logger,
		trace:     trace,
		metric:    metric,
		config:    conf,
		resolver:  resolver,
		forwarder: forwarder,
		audit:     audit,
		now:       time.Now,
	}
}

// exchange is the in-flight state of one gateway call. Once a config has
// been resolved, record is non-nil and exactly one enqueue follows.
type exchange struct {
	state    core.ProxyState
	mode     capture.Mode
	started  time.Time
	record   *model.ApiRequestLog
	enqueued bool
}

// Handle serves every method under the proxy prefix.
func (h *ProxyHandler) Handle(c *gin.Context) {
	ctx, span, end := h.trace.WithSpan(c, string(core.SpanProxyGateway))
	c.Set(core.ContextPassthroughKey, true)

	requestID := c.GetString(core.ContextRequestIDKey)
	if requestID == "" {
		requestID = newRequestID()
		c.Set(core.ContextRequestIDKey, requestID)
	}
	c.Header("X-Request-ID", requestID)

	x := &exchange{state: core.ProxyStateReceived, started: h.now()}
	meta := core.TraceProxyMeta{RequestID: requestID}
	var spanErr error
	defer func() {
		if rec := recover(); rec != nil {
			x.state = core.ProxyStateFailed
			message := fmt.Sprintf("panic: %v", rec)
			if !c.Writer.Written() {
				response.ProxyFail(c, http.StatusInternalServerError, core.ProxyErrInternal, message)
			}
			if x.record != nil && !x.enqueued {
				x.record.ResponseStatusCode = c.Writer.Status()
				h.fail(x, message, "panic")
			}
			meta.State = string(x.state)
			h.trace.ApplyTraceAttributes(span, meta)
			end(errors.New(message))
			panic(rec)
		}
		meta.State = string(x.state)
		if x.record != nil {
			meta.StatusCode = x.record.ResponseStatusCode
			meta.Truncated = x.record.Truncated
			meta.CapturedBytes = len(x.record.ResponseBody)
			meta.HasUsage = x.record.TokenUsage != ""
		}
		h.trace.ApplyTraceAttributes(span, meta)
		end(spanErr)
	}()

	token, ok := header.BearerToken(c.Request.Header)
	if !ok {
		x.state = core.ProxyStateFailed
		h.metric.ProxyFailed("missing_authorization")
		response.ProxyFail(c, http.StatusUnauthorized, core.ProxyErrMissingAuthorization, "")
		return
	}

	proxyConfig, err := h.resolver.Resolve(ctx, token)
	disabled := errors.Is(err, service.ErrProxyConfigDisabled)
	switch {
	case err != nil && !disabled:
		x.state = core.ProxyStateFailed
		spanErr = err
		h.metric.ProxyFailed("resolve")
		h.logger.Error("proxy config lookup failed", zap.String("requestId", requestID), zap.Error(err))
		response.ProxyFail(c, http.StatusInternalServerError, core.ProxyErrInternal, errorDetail(err))
		return
	case proxyConfig == nil:
		x.state = core.ProxyStateFailed
		h.metric.ProxyFailed("invalid_token")
		response.ProxyFail(c, http.StatusUnauthorized, core.ProxyErrInvalidBearerToken, "")
		return
	}

	meta.ProxyConfigID = proxyConfig.ID.Hex()
	meta.ProxyName = proxyConfig.Name
	x.record = h.newRecord(c, requestID, proxyConfig, x.started)
	c.Set(core.ContextProxyConfigKey, proxyConfig.ID.Hex())

	if disabled {
		x.state = core.ProxyStateFailed
		x.record.ResponseStatusCode = http.StatusBadRequest
		response.ProxyFail(c, http.StatusBadRequest, core.ProxyErrConfigDisabled, "")
		h.fail(x, core.ProxyErrConfigDisabled, "config_disabled")
		return
	}
	x.state = core.ProxyStateAuthorized

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		x.state = core.ProxyStateFailed
		spanErr = err
		x.record.ResponseStatusCode = http.StatusBadRequest
		response.ProxyFail(c, http.StatusBadRequest, "Unable to read request body", err.Error())
		h.fail(x, "read request body: "+err.Error(), "request_body")
		return
	}
	if proxyConfig.LogRequestBody {
		x.record.RequestBody = toValidUTF8(body)
	}
	x.record.Model = payload.ModelName(body)

	streaming := payload.IsStreaming(body)
	if streaming {
		x.mode = capture.Streaming
	}
	targetURL := service.TargetURL(proxyConfig.TargetURL, h.config.Prefix, c.Param("path"), c.Request.URL.RawQuery)
	x.record.TargetURL = targetURL
	x.record.Streaming = streaming
	meta.TargetURL = targetURL
	meta.Streaming = streaming
	meta.Model = x.record.Model

	x.state = core.ProxyStateForwarding
	upstream, err := h.forwarder.Forward(ctx, service.ForwardParams{
		Method:    c.Request.Method,
		TargetURL: targetURL,
		Header:    header.Outbound(c.Request.Header, proxyConfig.APIKey),
		Body:      body,
		Timeout:   proxyConfig.Timeout(time.Duration(h.config.DefaultTimeoutSeconds) * time.Second),
		Streaming: streaming,
	})
	if err != nil {
		spanErr = err
		h.forwardFailed(c, x, err)
		return
	}

	if streaming {
		spanErr = h.stream(c, x, proxyConfig, upstream)
		return
	}
	spanErr = h.buffer(c, x, proxyConfig, upstream)
}

func (h *ProxyHandler) buffer(c *gin.Context, x *exchange, proxyConfig *model.ProxyConfig, upstream *service.Upstream) error {
	x.state = core.ProxyStateBuffering
	x.record.ResponseStatusCode = upstream.StatusCode
	x.record.ResponseHeaders = header.Sanitize(upstream.Header)

	header.CopyResponse(c.Writer.Header(), upstream.Header, upstream.Decoded, false)
	c.Status(upstream.StatusCode)
	_, werr := c.Writer.Write(upstream.Body)

	result := capture.FromBuffered(upstream.Body)
	if usage, ok := payload.UsageFromJSON(result.Body); ok {
		x.record.TokenUsage = usage
	}
	if proxyConfig.LogResponseBody {
		x.record.ResponseBody = toValidUTF8(result.Body)
	}
	if werr != nil {
		werr = &capture.CopyError{Op: "write", Err: werr}
		_ = c.Error(werr)
		x.state = core.ProxyStateFailed
		h.fail(x, werr.Error(), "client_write")
		return werr
	}
	h.complete(x)
	return nil
}

// stream sends headers at once, then relays each chunk with a flush while
// the capture keeps a bounded copy. Errors after the first byte cannot
// change the response; they are recorded and handed to gin.
func (h *ProxyHandler) stream(c *gin.Context, x *exchange, proxyConfig *model.ProxyConfig, upstream *service.Upstream) error {
	defer upstream.Close()
	x.state = core.ProxyStateStreaming
	x.record.ResponseStatusCode = upstream.StatusCode
	x.record.ResponseHeaders = header.Sanitize(upstream.Header)

	header.CopyResponse(c.Writer.Header(), upstream.Header, upstream.Decoded, true)
	c.Status(upstream.StatusCode)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	recorder := capture.NewStream(h.config.MaxCaptureBytes, h.config.TailKeepBytes, h.config.TailMaxBytes)
	_, err := capture.Pump(capture.NewTeeWriter(c.Writer, recorder), upstream.Stream, h.config.StreamChunkBytes)

	result := recorder.Result()
	if usage, ok := payload.UsageFromSSE(result.Tail); ok {
		x.record.TokenUsage = usage
	}
	x.record.Truncated = result.Truncated
	if proxyConfig.LogResponseBody {
		x.record.ResponseBody = toValidUTF8(result.Body)
	}
	if err != nil {
		_ = c.Error(err)
		x.state = core.ProxyStateFailed
		reason := "upstream_read"
		if c.Request.Context().Err() != nil {
			reason = "client_gone"
		} else {
			var copyErr *capture.CopyError
			if errors.As(err, &copyErr) && copyErr.Op == "write" {
				reason = "client_write"
			}
		}
		h.fail(x, err.Error(), reason)
		return err
	}
	h.complete(x)
	return nil
}

// forwardFailed maps a failed upstream call onto the caller response.
func (h *ProxyHandler) forwardFailed(c *gin.Context, x *exchange, err error) {
	x.state = core.ProxyStateFailed
	if errors.Is(err, service.ErrClientGone) {
		x.record.ResponseStatusCode = StatusClientClosedRequest
		c.AbortWithStatus(StatusClientClosedRequest)
		h.fail(x, err.Error(), "client_gone")
		return
	}

	appErr := cErr.From(err)
	switch appErr.HttpCode() {
	case http.StatusGatewayTimeout:
		x.record.ResponseStatusCode = http.StatusGatewayTimeout
		response.ProxyFail(c, http.StatusGatewayTimeout, core.ProxyErrGatewayTimeout, "")
		h.fail(x, appErr.ErrorDesc(), "timeout")
	case http.StatusBadGateway:
		x.record.ResponseStatusCode = http.StatusBadGateway
		response.ProxyFail(c, http.StatusBadGateway, core.ProxyErrBadGateway, appErr.ErrorDesc())
		h.fail(x, appErr.ErrorDesc(), "transport")
	default:
		x.record.ResponseStatusCode = http.StatusInternalServerError
		response.ProxyFail(c, http.StatusInternalServerError, core.ProxyErrInternal, errorDetail(err))
		h.fail(x, errorDetail(err), "internal")
	}
}

func (h *ProxyHandler) newRecord(c *gin.Context, requestID string, proxyConfig *model.ProxyConfig, started time.Time) *model.ApiRequestLog {
	configID := proxyConfig.ID
	return &model.ApiRequestLog{
		RequestID:      requestID,
		ProxyConfigID:  &configID,
		ProxyName:      proxyConfig.Name,
		RequestPath:    c.Request.URL.RequestURI(),
		Method:         c.Request.Method,
		RequestHeaders: header.Sanitize(c.Request.Header),
		RequestTime:    started,
		ClientIP:       header.ClientIP(c.Request.Header, c.RemoteIP()),
		UserAgent:      c.Request.UserAgent(),
	}
}

// complete stamps the response time and hands the record to the audit sink.
func (h *ProxyHandler) complete(x *exchange) {
	x.state = core.ProxyStateCompleted
	finished := h.now()
	x.record.ResponseTime = &finished
	x.record.DurationMs = finished.Sub(x.record.RequestTime).Milliseconds()
	h.metric.ObserveProxy(x.mode.String(), strconv.Itoa(x.record.ResponseStatusCode), finished.Sub(x.started))
	h.enqueue(x)
}

func (h *ProxyHandler) fail(x *exchange, message, reason string) {
	x.record.ErrorMessage = message
	x.record.DurationMs = h.now().Sub(x.record.RequestTime).Milliseconds()
	h.metric.ProxyFailed(reason)
	h.metric.ObserveProxy(x.mode.String(), strconv.Itoa(x.record.ResponseStatusCode), h.now().Sub(x.started))
	h.logger.Warn("proxy exchange failed",
		zap.String("requestId", x.record.RequestID),
		zap.String("proxyName", x.record.ProxyName),
		zap.String("reason", reason),
		zap.Int("status", x.record.ResponseStatusCode),
		zap.String("error", message),
	)
	h.enqueue(x)
}

func (h *ProxyHandler) enqueue(x *exchange) {
	if x.enqueued {
		return
	}
	x.enqueued = true
	h.audit.Enqueue(x.record)
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func errorDetail(err error) string {
	var appErr *cErr.Error
	if errors.As(err, &appErr) && appErr.ErrorDesc() != "" {
		return appErr.ErrorDesc()
	}
	return err.Error()
}

func toValidUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
