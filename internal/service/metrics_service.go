package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abel-mek/school-roster-api/internal/models"
)

// counterPair tracks an event count and its summed duration for snapshot
// averages. Prometheus histograms cover the percentile view; these feed the
// JSON admin endpoint without scraping the registry.
type counterPair struct {
	count uint64
	total uint64
}

func (p *counterPair) add(d time.Duration) {
	atomic.AddUint64(&p.count, 1)
	atomic.AddUint64(&p.total, uint64(d.Nanoseconds()))
}

func (p *counterPair) averageMs() (uint64, float64) {
	count := atomic.LoadUint64(&p.count)
	if count == 0 {
		return 0, 0
	}
	total := atomic.LoadUint64(&p.total)
	return count, float64(total) / float64(count) / float64(time.Millisecond)
}

// MetricsService owns the Prometheus registry and a set of atomic
// aggregates backing the JSON snapshot endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	mirrorDuration  *prometheus.HistogramVec
	dbQueryDuration *prometheus.HistogramVec
	wsClients       prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
	requests       counterPair
	mirrorFetches  counterPair
	dbQueries      counterPair
	wsClientCount  int64
}

// NewMetricsService builds the registry and registers every collector.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})
	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheLatency = cacheLatency
	m.cacheWrite = cacheWrite
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})
	m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})
	m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	m.mirrorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mirror_fetch_duration_seconds",
		Help:    "Duration of entity store mirror fetches",
		Buckets: prometheus.DefBuckets,
	}, []string{"subtree"})
	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	m.wsClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_clients",
		Help: "Connected notification websocket clients",
	})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		cacheLatency, cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.mirrorDuration, m.dbQueryDuration,
		m.wsClients, goroutines,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus scrape handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, statusLabel).Inc()
	m.requests.add(duration)
}

// RecordCacheOperation records one cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// ObserveCacheWrite records one cache set.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveMirrorFetch records one entity store subtree fetch.
func (m *MetricsService) ObserveMirrorFetch(subtree string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mirrorDuration.WithLabelValues(subtree).Observe(duration.Seconds())
	m.mirrorFetches.add(duration)
}

// ObserveDBQuery records one database query under a stable label.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueries.add(duration)
}

// WebsocketClientConnected moves the connected client gauge by delta.
func (m *MetricsService) WebsocketClientConnected(delta int) {
	if m == nil {
		return
	}
	m.wsClients.Add(float64(delta))
	atomic.AddInt64(&m.wsClientCount, int64(delta))
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}

// Snapshot aggregates the counters for the JSON admin endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}

	ratio, _ := m.hitRatio()
	requests, avgRequestMs := m.requests.averageMs()
	mirrorCount, avgMirrorMs := m.mirrorFetches.averageMs()
	dbCount, avgDBMs := m.dbQueries.averageMs()

	return models.SystemMetrics{
		CacheHitRatio:            ratio,
		CacheHits:                atomic.LoadUint64(&m.cacheHitCount),
		CacheMisses:              atomic.LoadUint64(&m.cacheMissCount),
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		MirrorFetchCount:         mirrorCount,
		AverageMirrorFetchMs:     avgMirrorMs,
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgDBMs,
		WebsocketClients:         int(atomic.LoadInt64(&m.wsClientCount)),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
