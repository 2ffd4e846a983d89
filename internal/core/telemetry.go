package core

const ContextTraceKey = "telemetry_trace_ctx"

// ==== span names ====
type TraceSpanName string

const (
	SpanLoggerMiddleware   TraceSpanName = "logger_middleware"
	SpanRecoveryMiddleware TraceSpanName = "recovery_middleware"
	SpanCorsMiddleware     TraceSpanName = "cors_middleware"
	SpanResponseMiddleware TraceSpanName = "response_middleware"
	SpanAdminAuth          TraceSpanName = "admin_auth_middleware"
	SpanProxyGateway       TraceSpanName = "proxy.gateway"
	SpanProxyForward       TraceSpanName = "proxy.forward"
	SpanProxyResolve       TraceSpanName = "proxy.resolve"
	SpanAuditPersist       TraceSpanName = "audit.persist"
)

type MetricName string

const (
	MetricHttpRequestsTotal     MetricName = "requests_total"
	MetricHttpRequestDuration   MetricName = "request_duration_seconds"
	MetricProxyRequestsTotal    MetricName = "proxy_requests_total"
	MetricProxyUpstreamDuration MetricName = "proxy_upstream_duration_seconds"
	MetricProxyFailTotal        MetricName = "proxy_fail_total"
	MetricAuditEnqueuedTotal    MetricName = "audit_enqueued_total"
	MetricAuditDroppedTotal     MetricName = "audit_dropped_total"
	MetricAuditFailedTotal      MetricName = "audit_failed_total"
	MetricAuditQueueDepth       MetricName = "audit_queue_depth"
	MetricConfigCacheTotal      MetricName = "config_cache_total"
)

type MetricLabelName string

const (
	MetricLabelEndpoint MetricLabelName = "endpoint"
	MetricLabelStatus   MetricLabelName = "status"
	MetricLabelReason   MetricLabelName = "reason"
	MetricLabelMode     MetricLabelName = "mode"
	MetricLabelResult   MetricLabelName = "result"
)

type LoggerRequestMeta struct {
	Method     string            `trace:"request.method"`
	Path       string            `trace:"request.path"`
	FullPath   string            `trace:"request.full_path"`
	Query      string            `trace:"request.query"`
	Body       string            `trace:"request.body"`
	Host       string            `trace:"http.host"`
	UserAgent  string            `trace:"http.user_agent"`
	ContentLen int64             `trace:"http.request_content_length"`
	Proto      string            `trace:"http.flavor"`
	ClientIP   string            `trace:"net.peer.ip"`
	Headers    map[string]string `trace:"http.request.header"`
}

type TracePanicMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	ClientIP   string  `trace:"net.peer.ip"`
	UserAgent  string  `trace:"http.user_agent"`
	DurationMs float64 `trace:"response.latency_ms"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"error.message"`
	Stack      string  `trace:"error.stack"`
}

type TraceErrorMeta struct {
	Code       int     `trace:"error.code"`
	Message    string  `trace:"error.message"`
	Detail     string  `trace:"error.detail"`
	Status     int     `trace:"http.status_code"`
	DurationMs float64 `trace:"response.latency_ms"`
}

type TraceResponseMeta struct {
	Path       string  `trace:"http.path"`
	Method     string  `trace:"http.method"`
	Status     int     `trace:"http.status_code"`
	Message    string  `trace:"response.message"`
	DurationMs float64 `trace:"response.latency_ms"`
	Data       string  `trace:"response.data_preview"`
}

type TraceHttpServerMeta struct {
	ClientAddr        string `trace:"client.address"`
	HttpRequestMethod string `trace:"http.request.method"`
	HttpRoute         string `trace:"http.route"`
	UrlPath           string `trace:"http.request.path"`
	UrlScheme         string `trace:"http.request.url.scheme"`
	UserAgent         string `trace:"user_agent.original"`
	ServerAddress     string `trace:"server.address"`
	NetworkPeerAddr   string `trace:"network.peer.address"`
	NetworkPeerPort   int    `trace:"network.peer.port"`
	NetworkProtoVer   string `trace:"network.protocol.version"`
	SpanTraceID       string `trace:"span.trace_id"`
	HttpStatusCode    int    `trace:"http.response.status_code"`
}

type TraceProxyMeta struct {
	RequestID     string `trace:"proxy.request_id"`
	ProxyConfigID string `trace:"proxy.config_id,omitempty"`
	ProxyName     string `trace:"proxy.config_name,omitempty"`
	State         string `trace:"proxy.state"`
	Streaming     bool   `trace:"proxy.streaming"`
	TargetURL     string `trace:"proxy.target_url,omitempty"`
	Model         string `trace:"ai.model,omitempty"`
	StatusCode    int    `trace:"http.response.status_code,omitempty"`
	Truncated     bool   `trace:"proxy.capture.truncated"`
	CapturedBytes int    `trace:"proxy.capture.bytes"`
	HasUsage      bool   `trace:"ai.usage.present"`
}

type TraceProxyConfigMeta struct {
	Op            string `trace:"op"`
	ProxyConfigID string `trace:"proxy_config.id,omitempty"`
	CacheHit      bool   `trace:"proxy_config.cache_hit"`
	Found         bool   `trace:"proxy_config.found"`
	Enabled       bool   `trace:"proxy_config.enabled"`
	Count         int    `trace:"result.count,omitempty"`
}

type TraceAuditMeta struct {
	RequestID  string `trace:"audit.request_id"`
	StatusCode int    `trace:"audit.status_code"`
	Streaming  bool   `trace:"audit.streaming"`
	Mirrored   bool   `trace:"audit.mirrored"`
}

type TraceRequestLogQueryMeta struct {
	ProxyConfigID string `trace:"query.proxy_config_id,omitempty"`
	Model         string `trace:"query.model,omitempty"`
	Page          int64  `trace:"query.page"`
	Size          int64  `trace:"query.size"`
	Total         int64  `trace:"result.total"`
}
