package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coursewatch/coursewatch-api/internal/models"
)

// Check outcome labels for the checks_total counter.
const (
	CheckResultOK          = "ok"
	CheckResultFetchError  = "fetch_error"
	CheckResultRateLimited = "rate_limited"
	CheckResultNotFound    = "not_found"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	checksTotal     *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	rateLimitWait   prometheus.Observer
	activeMonitors  prometheus.Gauge

	checkCount           uint64
	checkFailureCount    uint64
	transitionCount      uint64
	notificationCount    uint64
	notificationFailures uint64
	requestCount         uint64
	requestDurationTotal uint64
	activeMonitorCount   int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	checksTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursewatch_checks_total",
		Help: "Total monitor check ticks by outcome",
	}, []string{"result"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursewatch_transitions_total",
		Help: "Total detected section transitions by kind",
	}, []string{"kind"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coursewatch_notifications_total",
		Help: "Total notification delivery attempts by channel and outcome",
	}, []string{"channel", "success"})

	rateLimitWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coursewatch_rate_limit_wait_seconds",
		Help:    "Time spent waiting on the upstream rate limiter",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60},
	})

	activeMonitors := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coursewatch_active_monitors",
		Help: "Number of monitors currently registered with the scheduler",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, checksTotal, transitions, notifications, rateLimitWait, activeMonitors, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		checksTotal:     checksTotal,
		transitions:     transitions,
		notifications:   notifications,
		rateLimitWait:   rateLimitWait,
		activeMonitors:  activeMonitors,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveCheck records the outcome of one monitor tick.
func (m *MetricsService) ObserveCheck(result string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(result).Inc()
	atomic.AddUint64(&m.checkCount, 1)
	if result != CheckResultOK {
		atomic.AddUint64(&m.checkFailureCount, 1)
	}
}

// ObserveTransition records one detected transition.
func (m *MetricsService) ObserveTransition(kind models.TransitionKind) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(kind)).Inc()
	atomic.AddUint64(&m.transitionCount, 1)
}

// ObserveNotification records one delivery attempt.
func (m *MetricsService) ObserveNotification(channel string, success bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, fmt.Sprintf("%t", success)).Inc()
	atomic.AddUint64(&m.notificationCount, 1)
	if !success {
		atomic.AddUint64(&m.notificationFailures, 1)
	}
}

// ObserveRateLimitWait tracks how long a tick waited for an upstream slot.
func (m *MetricsService) ObserveRateLimitWait(duration time.Duration) {
	if m == nil || m.rateLimitWait == nil {
		return
	}
	m.rateLimitWait.Observe(duration.Seconds())
}

// SetActiveMonitors updates the registered monitor gauge.
func (m *MetricsService) SetActiveMonitors(n int) {
	if m == nil {
		return
	}
	m.activeMonitors.Set(float64(n))
	atomic.StoreInt64(&m.activeMonitorCount, int64(n))
}

// Snapshot returns aggregated metrics suitable for the JSON endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		ChecksTotal:              atomic.LoadUint64(&m.checkCount),
		CheckFailures:            atomic.LoadUint64(&m.checkFailureCount),
		TransitionsTotal:         atomic.LoadUint64(&m.transitionCount),
		NotificationsTotal:       atomic.LoadUint64(&m.notificationCount),
		NotificationFailures:     atomic.LoadUint64(&m.notificationFailures),
		ActiveMonitors:           atomic.LoadInt64(&m.activeMonitorCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
