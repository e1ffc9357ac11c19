package models

import "time"

// SystemMetrics is a lightweight runtime snapshot reported by the health endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	UploadsAccepted          uint64    `json:"uploads_accepted"`
	UploadsRejected          uint64    `json:"uploads_rejected"`
	ArchivesStreamed         uint64    `json:"archives_streamed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
