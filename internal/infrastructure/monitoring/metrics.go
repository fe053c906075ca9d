package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/resilience"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsCreated  prometheus.Counter
	SessionsEnded    *prometheus.CounterVec
	SessionsSaved    prometheus.Counter
	SessionsRestored prometheus.Counter
	OutputBytes      prometheus.Counter

	// Persistence metrics
	LogFlushes      *prometheus.CounterVec
	LogFlushBytes   prometheus.Histogram
	UsageRecords    *prometheus.CounterVec
	PersistFailures *prometheus.CounterVec
	BreakerState    prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot
	mu       sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"totalRequests"`
	TotalErrors       int64   `json:"totalErrors"`
	ActiveSessions    int64   `json:"activeSessions"`
	ActiveConnections int64   `json:"activeConnections"`
	BytesStreamed     int64   `json:"bytesStreamed"`
	LogFlushes        int64   `json:"logFlushes"`
	UsageRecords      int64   `json:"usageRecords"`
	PersistFailures   int64   `json:"persistFailures"`
	AvgRequestSeconds float64 `json:"avgRequestSeconds"`
	UptimeSeconds     float64 `json:"uptimeSeconds"`

	totalDuration float64
}

// NewMetrics creates a collector on its own registry, so several instances
// (one per test) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdesk_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentdesk_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Session metrics
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentdesk_sessions_active",
			Help: "Number of sessions whose output stream has not ended",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentdesk_sessions_created_total",
			Help: "Total number of sessions spawned",
		}),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_sessions_ended_total",
				Help: "Total number of session streams ended, by terminal event",
			},
			[]string{"reason"},
		),
		SessionsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentdesk_sessions_saved_total",
			Help: "Total number of session configs saved",
		}),
		SessionsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentdesk_sessions_restored_total",
			Help: "Total number of sessions relaunched from a saved config",
		}),
		OutputBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "agentdesk_output_bytes_total",
			Help: "Total bytes read from session terminals",
		}),

		// Persistence metrics
		LogFlushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_log_flushes_total",
				Help: "Total number of log batch flushes, by trigger",
			},
			[]string{"trigger"},
		),
		LogFlushBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "agentdesk_log_flush_bytes",
			Help:    "Size of flushed log batches in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		UsageRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_usage_records_total",
				Help: "Total number of usage records extracted and stored, by model",
			},
			[]string{"model"},
		),
		PersistFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_persist_failures_total",
				Help: "Total number of swallowed persistence errors, by store",
			},
			[]string{"store"},
		),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentdesk_storage_breaker_state",
			Help: "Storage write breaker state (0 closed, 1 half-open, 2 open)",
		}),

		// WebSocket metrics
		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "agentdesk_ws_connections",
			Help: "Number of active WebSocket connections",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentdesk_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "agentdesk_uptime_seconds",
		Help: "Service uptime in seconds",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SessionStarted records a spawned session.
func (m *Metrics) SessionStarted() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// SessionEnded records the end of a session's stream.
func (m *Metrics) SessionEnded(reason string) {
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
	m.mu.Lock()
	m.snapshot.ActiveSessions--
	m.mu.Unlock()
}

// OutputRead records bytes read from a terminal.
func (m *Metrics) OutputRead(n int) {
	m.OutputBytes.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesStreamed += int64(n)
	m.mu.Unlock()
}

// LogFlushed records a flushed log batch.
func (m *Metrics) LogFlushed(trigger string, size int) {
	m.LogFlushes.WithLabelValues(trigger).Inc()
	m.LogFlushBytes.Observe(float64(size))
	m.mu.Lock()
	m.snapshot.LogFlushes++
	m.mu.Unlock()
}

// UsageRecorded records a stored usage record.
func (m *Metrics) UsageRecorded(model string) {
	m.UsageRecords.WithLabelValues(model).Inc()
	m.mu.Lock()
	m.snapshot.UsageRecords++
	m.mu.Unlock()
}

// PersistFailed records a persistence error that was logged and dropped.
func (m *Metrics) PersistFailed(store string) {
	m.PersistFailures.WithLabelValues(store).Inc()
	m.mu.Lock()
	m.snapshot.PersistFailures++
	m.mu.Unlock()
}

// SetBreakerState mirrors the storage breaker.
func (m *Metrics) SetBreakerState(state resilience.State) {
	m.BreakerState.Set(float64(state))
}

// IncSessionsSaved increments the sessions saved counter
func (m *Metrics) IncSessionsSaved() {
	m.SessionsSaved.Inc()
}

// IncSessionsRestored increments the sessions restored counter
func (m *Metrics) IncSessionsRestored() {
	m.SessionsRestored.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON stats endpoint.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()

	if s.TotalRequests > 0 {
		s.AvgRequestSeconds = s.totalDuration / float64(s.TotalRequests)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
