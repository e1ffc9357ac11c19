package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/content-vault-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for the health endpoint.
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
	uploads         *prometheus.CounterVec
	uploadBytes     *prometheus.CounterVec
	archiveBytes    prometheus.Counter
	archiveSkipped  prometheus.Counter
	archiveDuration prometheus.Histogram
	downloads       *prometheus.CounterVec
	blobCleanup     *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	uploadAccepted       uint64
	uploadRejected       uint64
	archiveCount         uint64
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
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_upload_files_total",
		Help: "Uploaded files by target and outcome; outcome is accepted or the rejection reason",
	}, []string{"target", "outcome"})

	uploadBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_upload_bytes_total",
		Help: "Bytes of accepted uploads",
	}, []string{"target"})

	archiveBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vault_archive_bytes_total",
		Help: "Uncompressed bytes copied into streamed archives",
	})

	archiveSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vault_archive_entries_skipped_total",
		Help: "Archive entries skipped because the blob could not be opened",
	})

	archiveDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vault_archive_stream_seconds",
		Help:    "Time spent streaming an archive",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_downloads_total",
		Help: "Completed downloads by target",
	}, []string{"target"})

	blobCleanup := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_blob_cleanup_total",
		Help: "Blob deletions run by the janitor by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		uploads, uploadBytes, archiveBytes, archiveSkipped, archiveDuration, downloads, blobCleanup, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		uploads:         uploads,
		uploadBytes:     uploadBytes,
		archiveBytes:    archiveBytes,
		archiveSkipped:  archiveSkipped,
		archiveDuration: archiveDuration,
		downloads:       downloads,
		blobCleanup:     blobCleanup,
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
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
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordUploadAccepted counts one accepted file of size bytes.
func (m *MetricsService) RecordUploadAccepted(target models.ModerationTarget, size int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(string(target), "accepted").Inc()
	m.uploadBytes.WithLabelValues(string(target)).Add(float64(size))
	atomic.AddUint64(&m.uploadAccepted, 1)
}

// RecordUploadRejected counts one rejected submission by reason.
func (m *MetricsService) RecordUploadRejected(target models.ModerationTarget, reason string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(string(target), reason).Inc()
	atomic.AddUint64(&m.uploadRejected, 1)
}

// ObserveArchive records one finished archive stream.
func (m *MetricsService) ObserveArchive(bytes int64, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.archiveBytes.Add(float64(bytes))
	m.archiveSkipped.Add(float64(skipped))
	m.archiveDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.archiveCount, 1)
}

// RecordDownload counts one completed download.
func (m *MetricsService) RecordDownload(target models.ModerationTarget) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(string(target)).Inc()
}

// RecordBlobCleanup counts one janitor deletion attempt.
func (m *MetricsService) RecordBlobCleanup(outcome string) {
	if m == nil {
		return
	}
	m.blobCleanup.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated metrics suitable for the health endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		UploadsAccepted:          atomic.LoadUint64(&m.uploadAccepted),
		UploadsRejected:          atomic.LoadUint64(&m.uploadRejected),
		ArchivesStreamed:         atomic.LoadUint64(&m.archiveCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
