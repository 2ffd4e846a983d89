package config

import "time"

type Proxy struct {
	// Route prefix of the gateway. It is also inserted between the target URL and the path.
	Prefix string `mapstructure:"PREFIX" json:"prefix" yaml:"prefix"`
	// Used when a proxy config carries no timeoutSeconds.
	DefaultTimeoutSeconds int `mapstructure:"DEFAULT_TIMEOUT_SECONDS" json:"default_timeout_seconds" yaml:"default_timeout_seconds"`
	MaxCaptureBytes       int `mapstructure:"MAX_CAPTURE_BYTES" json:"max_capture_bytes" yaml:"max_capture_bytes"`
	TailKeepBytes         int `mapstructure:"TAIL_KEEP_BYTES" json:"tail_keep_bytes" yaml:"tail_keep_bytes"`
	TailMaxBytes          int `mapstructure:"TAIL_MAX_BYTES" json:"tail_max_bytes" yaml:"tail_max_bytes"`
	StreamChunkBytes      int `mapstructure:"STREAM_CHUNK_BYTES" json:"stream_chunk_bytes" yaml:"stream_chunk_bytes"`
}

func (p *Proxy) applyDefaults() {
	if p.Prefix == "" {
		p.Prefix = "/v1"
	}
	if p.DefaultTimeoutSeconds <= 0 {
		p.DefaultTimeoutSeconds = 300
	}
	if p.MaxCaptureBytes <= 0 {
		p.MaxCaptureBytes = 1 << 20
	}
	if p.TailKeepBytes <= 0 {
		p.TailKeepBytes = 2048
	}
	if p.TailMaxBytes <= p.TailKeepBytes {
		p.TailMaxBytes = 2 * p.TailKeepBytes
	}
	if p.StreamChunkBytes <= 0 {
		p.StreamChunkBytes = 32 * 1024
	}
}

type Audit struct {
	QueueSize           int `mapstructure:"QUEUE_SIZE" json:"queue_size" yaml:"queue_size"`
	EnqueueTimeoutMs    int `mapstructure:"ENQUEUE_TIMEOUT_MS" json:"enqueue_timeout_ms" yaml:"enqueue_timeout_ms"`
	WriteTimeoutSeconds int `mapstructure:"WRITE_TIMEOUT_SECONDS" json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	// 0 disables the retention job.
	RetentionDays int    `mapstructure:"RETENTION_DAYS" json:"retention_days" yaml:"retention_days"`
	RetentionCron string `mapstructure:"RETENTION_CRON" json:"retention_cron" yaml:"retention_cron"`
}

func (a *Audit) applyDefaults() {
	if a.QueueSize <= 0 {
		a.QueueSize = 1024
	}
	if a.EnqueueTimeoutMs <= 0 {
		a.EnqueueTimeoutMs = 100
	}
	if a.WriteTimeoutSeconds <= 0 {
		a.WriteTimeoutSeconds = 10
	}
	if a.RetentionCron == "" {
		a.RetentionCron = "0 0 3 * * *"
	}
}

func (a Audit) EnqueueTimeout() time.Duration {
	return time.Duration(a.EnqueueTimeoutMs) * time.Millisecond
}

func (a Audit) WriteTimeout() time.Duration {
	return time.Duration(a.WriteTimeoutSeconds) * time.Second
}

type Admin struct {
	Username        string `mapstructure:"USERNAME" json:"username" yaml:"username"`
	Password        string `mapstructure:"PASSWORD" json:"password" yaml:"password"`
	JWTSecret       string `mapstructure:"JWT_SECRET" json:"jwt_secret" yaml:"jwt_secret"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES" json:"token_ttl_minutes" yaml:"token_ttl_minutes"`
}
