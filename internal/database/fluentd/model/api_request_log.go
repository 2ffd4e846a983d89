package model

// ApiRequestLog is the flattened audit record shipped to Fluentd. Bodies
// stay in MongoDB; the mirror carries the searchable fields only.
type ApiRequestLog struct {
	RequestID     string `json:"request_id"`
	ProxyConfigID string `json:"proxy_config_id,omitempty"`
	ProxyName     string `json:"proxy_name,omitempty"`
	Model         string `json:"model,omitempty"`
	Method        string `json:"method"`
	Path          string `json:"path"`
	TargetURL     string `json:"target_url,omitempty"`
	StatusCode    int    `json:"status_code"`
	Streaming     bool   `json:"streaming"`
	Truncated     bool   `json:"truncated"`
	DurationMs    int64  `json:"duration_ms"`
	ErrorMessage  string `json:"error_message,omitempty"`
	ClientIP      string `json:"client_ip,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	TokenUsage    string `json:"token_usage,omitempty"`
	Version       string `json:"version,omitempty"`
	RequestTS     string `json:"request_ts"`
	LoggedAt      string `json:"logged_at"`
}
