package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceRecordsPipelineMetrics(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveClassification(OutcomeStructured, 200*time.Millisecond)
	metrics.ObserveClassification(OutcomeUpstream, time.Second)
	metrics.RecordVerification("approved", SourceAutomatic)
	metrics.RecordCacheOperation(true)
	metrics.RecordCacheOperation(false)

	depth := 4
	metrics.RegisterQueueDepth(func() int { return depth })
	metrics.RegisterQueueDepth(func() int { return 99 })

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.classifierCalls.WithLabelValues(OutcomeStructured)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.verifications.WithLabelValues("approved", SourceAutomatic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "verification_queue_depth 4")
	assert.Contains(t, rec.Body.String(), `classifier_requests_total{outcome="upstream_error"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
	metrics.ObserveClassification(OutcomeText, time.Millisecond)
	metrics.RecordVerification("rejected", SourceRecovery)
	metrics.RegisterQueueDepth(func() int { return 1 })

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
