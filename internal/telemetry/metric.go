package telemetry

import (
	"time"

	"mme/config"
	"mme/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric holds every collector. A disabled Metric has nil collectors and all
// recording helpers become no-ops.
type Metric struct {
	HttpRequestsTotal     *prometheus.CounterVec
	HttpRequestDuration   *prometheus.HistogramVec
	ProxyRequestsTotal    *prometheus.CounterVec
	ProxyUpstreamDuration *prometheus.HistogramVec
	ProxyFailTotal        *prometheus.CounterVec
	AuditEnqueuedTotal    prometheus.Counter
	AuditDroppedTotal     *prometheus.CounterVec
	AuditFailedTotal      *prometheus.CounterVec
	AuditQueueDepth       prometheus.Gauge
	ConfigCacheTotal      *prometheus.CounterVec
}

func NewMetric(config *config.Configuration) *Metric {
	if config == nil || !config.Telemetry.Metric.Enabled {
		return &Metric{}
	}
	buckets := prometheus.DefBuckets
	if len(config.Telemetry.Metric.Buckets) > 0 {
		buckets = config.Telemetry.Metric.Buckets
	}
	name := func(m core.MetricName) string { return config.App.Name + "_" + string(m) }

	return &Metric{
		HttpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: name(core.MetricHttpRequestsTotal), Help: "Total received HTTP requests"},
			labelNames(core.MetricLabelEndpoint, core.MetricLabelStatus),
		),
		HttpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: name(core.MetricHttpRequestDuration), Help: "HTTP request duration (seconds)", Buckets: buckets},
			labelNames(core.MetricLabelEndpoint),
		),
		ProxyRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: name(core.MetricProxyRequestsTotal), Help: "Proxied calls by capture mode and upstream status"},
			labelNames(core.MetricLabelMode, core.MetricLabelStatus),
		),
		ProxyUpstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: name(core.MetricProxyUpstreamDuration), Help: "Upstream exchange duration (seconds)", Buckets: buckets},
			labelNames(core.MetricLabelMode),
		),
		ProxyFailTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: name(core.MetricProxyFailTotal), Help: "Gateway failures by reason"},
			labelNames(core.MetricLabelReason),
		),
		AuditEnqueuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{Name: name(core.MetricAuditEnqueuedTotal), Help: "Audit records accepted by the writer queue"},
		),
		AuditDroppedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: name(core.MetricAuditDroppedTotal), Help: "Audit records dropped before persistence"},
			labelNames(core.MetricLabelReason),
		),
		AuditFailedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: name(core.MetricAuditFailedTotal), Help: "Audit persistence failures by sink"},
			labelNames(core.MetricLabelReason),
		),
		AuditQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{Name: name(core.MetricAuditQueueDepth), Help: "Audit records waiting in the writer queue"},
		),
		ConfigCacheTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{Name: name(core.MetricConfigCacheTotal), Help: "Bearer token cache lookups"},
			labelNames(core.MetricLabelResult),
		),
	}
}

func (m *Metric) ObserveHTTP(endpoint, status string, d time.Duration) {
	if m == nil || m.HttpRequestsTotal == nil {
		return
	}
	m.HttpRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.HttpRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metric) ObserveProxy(mode, status string, d time.Duration) {
	if m == nil || m.ProxyRequestsTotal == nil {
		return
	}
	m.ProxyRequestsTotal.WithLabelValues(mode, status).Inc()
	m.ProxyUpstreamDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *Metric) ProxyFailed(reason string) {
	if m == nil || m.ProxyFailTotal == nil {
		return
	}
	m.ProxyFailTotal.WithLabelValues(reason).Inc()
}

func (m *Metric) AuditEnqueued(depth int) {
	if m == nil || m.AuditEnqueuedTotal == nil {
		return
	}
	m.AuditEnqueuedTotal.Inc()
	m.AuditQueueDepth.Set(float64(depth))
}

func (m *Metric) AuditDequeued(depth int) {
	if m == nil || m.AuditQueueDepth == nil {
		return
	}
	m.AuditQueueDepth.Set(float64(depth))
}

func (m *Metric) AuditDropped(reason string) {
	if m == nil || m.AuditDroppedTotal == nil {
		return
	}
	m.AuditDroppedTotal.WithLabelValues(reason).Inc()
}

func (m *Metric) AuditFailed(sink string) {
	if m == nil || m.AuditFailedTotal == nil {
		return
	}
	m.AuditFailedTotal.WithLabelValues(sink).Inc()
}

func (m *Metric) ConfigCache(result string) {
	if m == nil || m.ConfigCacheTotal == nil {
		return
	}
	m.ConfigCacheTotal.WithLabelValues(result).Inc()
}

func labelNames(labels ...core.MetricLabelName) []string {
	strs := make([]string, len(labels))
	for i, l := range labels {
		strs[i] = string(l)
	}
	return strs
}
