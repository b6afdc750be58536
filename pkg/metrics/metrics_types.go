package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Engine Metrics
	SessionsActive         prometheus.Gauge
	SessionsCreatedTotal   prometheus.Counter
	SessionsDestroyedTotal prometheus.Counter
	SessionsEvictedTotal   prometheus.Counter
	ComputesTotal          *prometheus.CounterVec
	ComputeDuration        *prometheus.HistogramVec
	ComputeIterations      prometheus.Histogram
	ComputeNodes           prometheus.Histogram
	DroppedNodesTotal      prometheus.Counter
	DroppedEdgesTotal      prometheus.Counter

	// Server Metrics
	RequestsTotal         *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	RequestsInFlight      prometheus.Gauge
	RequestSizeBytes      *prometheus.HistogramVec
	ResponseSizeBytes     *prometheus.HistogramVec
	CompressedFramesTotal *prometheus.CounterVec
	BadFramesTotal        prometheus.Counter

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initEngineMetrics()
	r.initServerMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
