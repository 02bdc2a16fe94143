// Package metrics exposes seccompare runtime metrics in Prometheus format.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for session and validation activity.
type Metrics struct {
	registry *prometheus.Registry

	// SessionWrites counts session collection writes by operation and result.
	SessionWrites *prometheus.CounterVec
	// ValidationWrites counts validation writes by resulting status.
	ValidationWrites *prometheus.CounterVec
	// CorruptReads counts reads that found an undecodable collection.
	CorruptReads prometheus.Counter
	// StoreLatency tracks backend operation latency.
	StoreLatency *prometheus.HistogramVec
	// Sessions is the number of sessions seen by the last full read.
	Sessions prometheus.Gauge
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Global returns the process-wide metrics instance.
func Global() *Metrics {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seccompare_session_writes_total",
			Help: "Session collection writes by operation and result",
		}, []string{"operation", "result"}),
		ValidationWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seccompare_validation_writes_total",
			Help: "Validation writes by resulting status",
		}, []string{"status"}),
		CorruptReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "seccompare_corrupt_reads_total",
			Help: "Reads that found corrupt stored data and fell back to an empty collection",
		}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "seccompare_store_operation_duration_seconds",
			Help:    "Backend operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~400ms
		}, []string{"operation"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "seccompare_sessions",
			Help: "Number of sessions in the store at the last full read",
		}),
	}

	m.registry.MustRegister(
		m.SessionWrites,
		m.ValidationWrites,
		m.CorruptReads,
		m.StoreLatency,
		m.Sessions,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordSessionWrite records a write to the session collection.
func (m *Metrics) RecordSessionWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SessionWrites.WithLabelValues(operation, result).Inc()
}

// RecordValidationWrite records a validation write; pending writes are deletes.
func (m *Metrics) RecordValidationWrite(status string) {
	m.ValidationWrites.WithLabelValues(status).Inc()
}

// ObserveStore records how long a backend operation took.
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	m.StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
