// Package metrics provides Prometheus metrics collection
package metrics

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veloz-systems/gateway/infrastructure/runtime"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Rate limiting
	RateLimitDenialsTotal *prometheus.CounterVec

	// SSE streaming
	SSEActiveStreams prometheus.Gauge

	// Engine bridge
	BridgeConnectionState prometheus.Gauge

	// Audit logging
	AuditQueueDroppedTotal prometheus.Counter

	// Event broadcaster
	BroadcasterSubscribers prometheus.Gauge

	// Service health
	ServiceUptime prometheus.Gauge
	ServiceInfo   *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered
func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry
func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP metrics
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"service", "method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "method", "path"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		// Error metrics
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_total",
				Help: "Total number of errors",
			},
			[]string{"service", "type", "operation"},
		),

		// Rate limiting
		RateLimitDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_denials_total",
				Help: "Total number of requests denied by the rate limiter",
			},
			[]string{"service", "identity_kind"},
		),

		// SSE streaming
		SSEActiveStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "sse_active_streams",
				Help: "Current number of open SSE subscriptions",
			},
		),

		// Engine bridge
		BridgeConnectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "engine_bridge_connection_state",
				Help: "Engine bridge state: 0=disconnected, 1=connecting, 2=connected",
			},
		),

		// Audit logging
		AuditQueueDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_queue_dropped_total",
				Help: "Total number of audit records dropped because the queue was full",
			},
		),

		// Event broadcaster
		BroadcasterSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "broadcaster_subscribers",
				Help: "Current number of active event broadcaster subscriptions",
			},
		),

		// Service health
		ServiceUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "service_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
		ServiceInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "service_info",
				Help: "Service information",
			},
			[]string{"service", "version", "environment"},
		),
	}

	// Register all collectors
	if registerer != nil {
		registerer.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.RequestsInFlight,
			m.ErrorsTotal,
			m.RateLimitDenialsTotal,
			m.SSEActiveStreams,
			m.BridgeConnectionState,
			m.AuditQueueDroppedTotal,
			m.BroadcasterSubscribers,
			m.ServiceUptime,
			m.ServiceInfo,
		)
	}

	// Set service info
	m.ServiceInfo.WithLabelValues(serviceName, "1.0.0", getEnvironment()).Set(1)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(service, method, path, status).Inc()
	m.RequestDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// RecordError records an error
func (m *Metrics) RecordError(service, errorType, operation string) {
	m.ErrorsTotal.WithLabelValues(service, errorType, operation).Inc()
}

// RecordRateLimitDenial records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimitDenial(service, identityKind string) {
	m.RateLimitDenialsTotal.WithLabelValues(service, identityKind).Inc()
}

// SetSSEActiveStreams sets the current number of open SSE subscriptions
func (m *Metrics) SetSSEActiveStreams(count int) {
	m.SSEActiveStreams.Set(float64(count))
}

// BridgeState mirrors internal/bridge's connection state enum without
// importing it, to avoid a dependency cycle between metrics and bridge.
type BridgeState int

const (
	BridgeDisconnected BridgeState = 0
	BridgeConnecting   BridgeState = 1
	BridgeConnected    BridgeState = 2
)

// SetBridgeConnectionState records the engine bridge's current state
func (m *Metrics) SetBridgeConnectionState(state BridgeState) {
	m.BridgeConnectionState.Set(float64(state))
}

// RecordAuditQueueDropped records an audit record dropped due to a full queue
func (m *Metrics) RecordAuditQueueDropped() {
	m.AuditQueueDroppedTotal.Inc()
}

// SetBroadcasterSubscribers sets the current number of active subscriptions
func (m *Metrics) SetBroadcasterSubscribers(count int) {
	m.BroadcasterSubscribers.Set(float64(count))
}

// UpdateUptime updates the service uptime
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.ServiceUptime.Set(time.Since(startTime).Seconds())
}

// IncrementInFlight increments the in-flight requests counter
func (m *Metrics) IncrementInFlight() {
	m.RequestsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight requests counter
func (m *Metrics) DecrementInFlight() {
	m.RequestsInFlight.Dec()
}

// Helper functions

func getEnvironment() string {
	return string(runtime.Env())
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults:
// - production: disabled unless explicitly enabled via METRICS_ENABLED
// - non-production: enabled unless explicitly disabled via METRICS_ENABLED
func Enabled() bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED")))
	if raw == "" {
		return !runtime.IsProduction()
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance
func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(serviceName)
	}
	return globalMetrics
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
