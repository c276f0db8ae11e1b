package models

import "time"

// SystemMetrics is a lightweight aggregate of runtime counters exposed on
// the admin surface, complementing the raw Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	MirrorFetchCount         uint64    `json:"mirror_fetch_count"`
	AverageMirrorFetchMs     float64   `json:"average_mirror_fetch_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	WebsocketClients         int       `json:"websocket_clients"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
