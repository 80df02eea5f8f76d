package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageOps        *prometheus.CounterVec
	StorageOpDuration *prometheus.HistogramVec

	// Library metrics
	LibraryBooks prometheus.Gauge
	BlobsLive    prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates and registers the metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reader_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reader_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		StorageOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reader_storage_operations_total",
				Help: "Storage backend operations by outcome",
			},
			[]string{"operation", "status"},
		),
		StorageOpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reader_storage_operation_duration_seconds",
				Help:    "Storage backend operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation"},
		),
		LibraryBooks: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reader_library_books",
				Help: "Number of books in the library manifest",
			},
		),
		BlobsLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reader_blobs_live",
				Help: "Blob URLs currently registered and unrevoked",
			},
		),
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "reader_ws_connections",
				Help: "Active WebSocket event subscribers",
			},
		),
	}
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStorageOp records one backend operation.
func (m *Metrics) RecordStorageOp(operation, status string, duration time.Duration) {
	m.StorageOps.WithLabelValues(operation, status).Inc()
	m.StorageOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Uptime reports time since process start.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Timer measures one storage operation.
type Timer struct {
	start     time.Time
	metrics   *Metrics
	operation string
}

// NewTimer starts timing an operation.
func NewTimer(metrics *Metrics, operation string) *Timer {
	return &Timer{start: time.Now(), metrics: metrics, operation: operation}
}

// Stop records the elapsed time under the given status.
func (t *Timer) Stop(status string) {
	t.metrics.RecordStorageOp(t.operation, status, time.Since(t.start))
}
