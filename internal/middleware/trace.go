package middleware

import (
	"net"
	"strconv"
	"time"

	"mme/config"
	"mme/internal/core"
	"mme/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceEntry opens the server span, assigns the request correlation id and
// records HTTP metrics.
type TraceEntry struct {
	trace  *telemetry.Trace
	metric *telemetry.Metric
	conf   *config.Configuration
}

func NewTraceEntry(trace *telemetry.Trace, metric *telemetry.Metric, conf *config.Configuration) *TraceEntry {
	return &TraceEntry{trace: trace, metric: metric, conf: conf}
}

func (m *TraceEntry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set("requestDuration", start)
		requestID, err := uuid.NewV7()
		if err != nil {
			requestID = uuid.New()
		}
		c.Set(core.ContextRequestIDKey, requestID.String())

		endpoint := c.FullPath()
		if untraced(endpoint) {
			c.Next()
			return
		}

		carrier := propagation.HeaderCarrier(c.Request.Header)
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), carrier)
		spanName := c.Request.Method + " " + endpoint
		ctx, span := m.trace.StartSpanForLayer(ctx, core.TraceSpanName(spanName), trace.WithSpanKind(trace.SpanKindServer))
		c.Request = c.Request.WithContext(ctx)
		c.Set(core.ContextTraceKey, ctx)

		peerAddr, peerPort := c.ClientIP(), 0
		if host, port, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
			peerAddr = host
			peerPort, _ = strconv.Atoi(port)
		}
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		meta := core.TraceHttpServerMeta{
			ClientAddr:        c.ClientIP(),
			HttpRequestMethod: c.Request.Method,
			HttpRoute:         endpoint,
			UrlPath:           c.Request.URL.Path,
			UrlScheme:         scheme,
			UserAgent:         c.Request.UserAgent(),
			ServerAddress:     m.conf.App.Name,
			NetworkPeerAddr:   peerAddr,
			NetworkPeerPort:   peerPort,
			NetworkProtoVer:   c.Request.Proto,
			SpanTraceID:       span.SpanContext().TraceID().String(),
		}
		m.trace.ApplyTraceAttributes(span, &meta)

		c.Next()

		statusCode := c.Writer.Status()
		meta.HttpStatusCode = statusCode
		m.trace.ApplyTraceAttributes(span, &meta)

		var spanErr error
		if statusCode >= 500 && len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		}
		m.metric.ObserveHTTP(endpoint, strconv.Itoa(statusCode), time.Since(start))
		m.trace.EndSpan(span, spanErr)
	}
}
