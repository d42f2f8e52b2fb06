package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	txRetriesTotal  prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
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

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflicts_detected_total",
		Help: "Conflicts detected during change request submission",
	}, []string{"type"})

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "change_request_decisions_total",
		Help: "Change request review outcomes",
	}, []string{"status"})

	txRetriesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_tx_retries_total",
		Help: "Serializable transaction retries caused by lost races",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictsTotal, decisionsTotal, txRetriesTotal, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictsTotal:  conflictsTotal,
		decisionsTotal:  decisionsTotal,
		txRetriesTotal:  txRetriesTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordConflict counts one detected conflict by type.
func (m *MetricsService) RecordConflict(conflictType string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(conflictType).Inc()
}

// RecordDecision counts one review outcome.
func (m *MetricsService) RecordDecision(status string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(status).Inc()
}

// RecordTxRetry counts one serializable transaction retry.
func (m *MetricsService) RecordTxRetry() {
	if m == nil {
		return
	}
	m.txRetriesTotal.Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}
