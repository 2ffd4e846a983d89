package core

// ProxyState is the lifecycle stage of one gateway call.
type ProxyState string

const (
	ProxyStateReceived   ProxyState = "received"
	ProxyStateAuthorized ProxyState = "authorized"
	ProxyStateForwarding ProxyState = "forwarding"
	ProxyStateStreaming  ProxyState = "streaming"
	ProxyStateBuffering  ProxyState = "buffering"
	ProxyStateCompleted  ProxyState = "completed"
	ProxyStateFailed     ProxyState = "failed"
)

// gin context keys
const (
	ContextRequestIDKey   = "requestId"
	ContextProxyConfigKey = "proxyConfig"
	ContextPassthroughKey = "passthrough_raw"
	ContextAdminClaimsKey = "adminClaims"
)

// Proxy error messages returned in {"error": ...}.
const (
	ProxyErrMissingAuthorization = "Missing or invalid authorization header"
	ProxyErrInvalidBearerToken   = "Invalid bearer token"
	ProxyErrConfigDisabled       = "Proxy configuration is disabled"
	ProxyErrBadGateway           = "Bad gateway"
	ProxyErrGatewayTimeout       = "Gateway timeout"
	ProxyErrInternal             = "Internal server error"
)

var DefaultSupportedPaths = []string{"/v1/chat/completions", "/v1/embeddings", "/v1/rerank"}

const (
	DefaultTimeoutSeconds = 300
	DefaultMaxRetries     = 3
	BearerTokenPrefix     = "pk-"
	BearerTokenLength     = 32
)
