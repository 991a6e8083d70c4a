package models

import "time"

// SystemMetrics is a lightweight snapshot of process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	StatusCacheHits          uint64    `json:"status_cache_hits"`
	StatusCacheMisses        uint64    `json:"status_cache_misses"`
	StatusCacheHitRatio      float64   `json:"status_cache_hit_ratio"`
	AuthSuccesses            uint64    `json:"auth_successes"`
	AuthFailures             uint64    `json:"auth_failures"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
