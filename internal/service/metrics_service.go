package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classifier call outcomes recorded by ObserveClassification.
const (
	OutcomeStructured = "structured"
	OutcomeText       = "text"
	OutcomeTransport  = "transport_error"
	OutcomeUpstream   = "upstream_error"
	OutcomeMalformed  = "malformed"
)

// Verification write sources.
const (
	SourceAutomatic = "automatic"
	SourceOverride  = "override"
	SourceRecovery  = "recovery"
)

// MetricsService owns the Prometheus registry for HTTP, cache and pipeline instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	classifierCalls   *prometheus.CounterVec
	classifierLatency prometheus.Histogram
	verifications     *prometheus.CounterVec

	queueOnce sync.Once
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	classifierCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "classifier_requests_total",
		Help: "Classification calls by outcome",
	}, []string{"outcome"})

	classifierLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "classifier_request_duration_seconds",
		Help:    "Latency of outbound classification calls",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "concern_verifications_total",
		Help: "Verification writes by resulting status and source",
	}, []string{"status", "source"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, classifierCalls, classifierLatency, verifications, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLookups:      cacheLookups,
		classifierCalls:   classifierCalls,
		classifierLatency: classifierLatency,
		verifications:     verifications,
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RegisterQueueDepth exports the number of waiting verification jobs. Only the first call registers.
func (m *MetricsService) RegisterQueueDepth(depth func() int) {
	if m == nil || depth == nil {
		return
	}
	m.queueOnce.Do(func() {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "verification_queue_depth",
			Help: "Verification jobs waiting to start",
		}, func() float64 {
			return float64(depth())
		}))
	})
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveClassification records one outbound classification call.
func (m *MetricsService) ObserveClassification(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.classifierCalls.WithLabelValues(outcome).Inc()
	m.classifierLatency.Observe(duration.Seconds())
}

// RecordVerification counts a persisted verification decision.
func (m *MetricsService) RecordVerification(status, source string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(status, source).Inc()
}
