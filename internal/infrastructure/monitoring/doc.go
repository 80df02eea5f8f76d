// Package monitoring exposes Prometheus metrics for the reader backend:
// HTTP traffic, storage operation counts and latencies, library size and
// live blob URLs. Gin middleware records the HTTP side; the storage side
// is recorded by InstrumentedBackend, which the server wraps around the
// selected backend.
package monitoring
