package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface, the directory cache and the notification fan-out path.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	fanoutCreated   prometheus.Counter
	fanoutFailed    prometheus.Counter
	pushDelivered   prometheus.Counter
	pushDropped     prometheus.Counter
	wsConnections   prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "directory_cache_latency_seconds",
		Help:    "Latency for directory cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "directory_cache_hit_ratio",
		Help: "Ratio of directory cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "directory_cache_hits_total",
		Help: "Total directory cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "directory_cache_misses_total",
		Help: "Total directory cache misses",
	})

	fanoutCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total notifications persisted by fan-out",
	})

	fanoutFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total per-recipient fan-out failures",
	})

	pushDelivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_enqueued_total",
		Help: "Total live-push deliveries enqueued",
	})

	pushDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_dropped_total",
		Help: "Total live-push deliveries dropped",
	})

	wsConnections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections",
		Help: "Currently connected websocket sessions",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHitRatio,
		cacheHits, cacheMisses, fanoutCreated, fanoutFailed, pushDelivered, pushDropped,
		wsConnections, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		fanoutCreated:   fanoutCreated,
		fanoutFailed:    fanoutFailed,
		pushDelivered:   pushDelivered,
		pushDropped:     pushDropped,
		wsConnections:   wsConnections,
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

// RecordCacheOperation records directory cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordFanout tracks persisted notifications and per-recipient failures.
func (m *MetricsService) RecordFanout(created, failed int) {
	if m == nil {
		return
	}
	if created > 0 {
		m.fanoutCreated.Add(float64(created))
	}
	if failed > 0 {
		m.fanoutFailed.Add(float64(failed))
	}
}

// RecordPush tracks the live-push leg.
func (m *MetricsService) RecordPush(enqueued bool) {
	if m == nil {
		return
	}
	if enqueued {
		m.pushDelivered.Inc()
	} else {
		m.pushDropped.Inc()
	}
}

// WSConnected adjusts the live connection gauge.
func (m *MetricsService) WSConnected(delta int) {
	if m == nil {
		return
	}
	m.wsConnections.Add(float64(delta))
}
