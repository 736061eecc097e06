// Package metrics holds the Prometheus collectors shared by the scanner,
// results cache, optimizer and change monitor.
//
// All metrics use the "dirstat_" prefix. Methods handle a nil receiver, so a
// nil *Metrics is a no-op and callers never need to check whether metrics
// are enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cache lookup results.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Metrics tracks scan, cache and monitor activity.
type Metrics struct {
	// FilesScanned counts files handed to a processor.
	FilesScanned prometheus.Counter

	// FilesFailed counts files dropped because processing failed or panicked.
	FilesFailed prometheus.Counter

	// BatchesDropped counts batches whose goroutine panicked.
	BatchesDropped prometheus.Counter

	// ScanDuration tracks wall time of full scans.
	// Labels: operation
	ScanDuration *prometheus.HistogramVec

	// CacheLookups counts cache lookups.
	// Labels: operation, result=[hit, miss]
	CacheLookups *prometheus.CounterVec

	// CacheInvalidations counts keys removed by invalidation.
	CacheInvalidations prometheus.Counter

	// BucketBytes is the total size currently classified into each bucket.
	// Labels: bucket
	BucketBytes *prometheus.GaugeVec

	// MonitorEvents counts raw filesystem events received.
	MonitorEvents prometheus.Counter

	// MonitorDispatches counts changed paths delivered to the handler.
	MonitorDispatches prometheus.Counter
}

// New creates the collectors and registers them with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirstat_files_scanned_total",
			Help: "Total files processed by scans",
		}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirstat_files_failed_total",
			Help: "Total files dropped after a processing error",
		}),
		BatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirstat_batches_dropped_total",
			Help: "Total scan batches dropped after a worker panic",
		}),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dirstat_scan_duration_seconds",
				Help:    "Duration of full directory scans",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirstat_cache_lookups_total",
				Help: "Results cache lookups by operation and result",
			},
			[]string{"operation", "result"},
		),
		CacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirstat_cache_invalidations_total",
			Help: "Total cache entries removed by invalidation",
		}),
		BucketBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dirstat_bucket_bytes",
				Help: "Bytes currently classified into each bucket",
			},
			[]string{"bucket"},
		),
		MonitorEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirstat_monitor_events_total",
			Help: "Filesystem events received by the change monitor",
		}),
		MonitorDispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dirstat_monitor_dispatches_total",
			Help: "Changed paths dispatched after debouncing",
		}),
	}

	reg.MustRegister(
		m.FilesScanned,
		m.FilesFailed,
		m.BatchesDropped,
		m.ScanDuration,
		m.CacheLookups,
		m.CacheInvalidations,
		m.BucketBytes,
		m.MonitorEvents,
		m.MonitorDispatches,
	)
	return m
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// FileScanned records one processed file.
func (m *Metrics) FileScanned() {
	if m == nil {
		return
	}
	m.FilesScanned.Inc()
}

// FileFailed records one dropped file.
func (m *Metrics) FileFailed() {
	if m == nil {
		return
	}
	m.FilesFailed.Inc()
}

// BatchDropped records one dropped batch.
func (m *Metrics) BatchDropped() {
	if m == nil {
		return
	}
	m.BatchesDropped.Inc()
}

// ObserveScan records the duration of a scan for operation.
func (m *Metrics) ObserveScan(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.ScanDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// CacheLookup records a cache hit or miss for operation.
func (m *Metrics) CacheLookup(operation string, hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.CacheLookups.WithLabelValues(operation, result).Inc()
}

// Invalidated records n removed cache entries.
func (m *Metrics) Invalidated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheInvalidations.Add(float64(n))
}

// SetBucketBytes sets the classified size of bucket.
func (m *Metrics) SetBucketBytes(bucket string, size int64) {
	if m == nil {
		return
	}
	m.BucketBytes.WithLabelValues(bucket).Set(float64(size))
}

// MonitorEvent records one raw filesystem event.
func (m *Metrics) MonitorEvent() {
	if m == nil {
		return
	}
	m.MonitorEvents.Inc()
}

// MonitorDispatch records one path handed to the change handler.
func (m *Metrics) MonitorDispatch() {
	if m == nil {
		return
	}
	m.MonitorDispatches.Inc()
}
