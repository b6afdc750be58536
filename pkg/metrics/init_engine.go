package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initEngineMetrics() {
	r.SessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_sessions_active",
			Help: "Number of live layout sessions",
		},
	)

	r.SessionsCreatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "layout_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	r.SessionsDestroyedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "layout_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		},
	)

	r.SessionsEvictedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "layout_sessions_evicted_total",
			Help: "Total number of idle sessions evicted by the janitor",
		},
	)

	r.ComputesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_computes_total",
			Help: "Total number of compute calls",
		},
		[]string{"status"},
	)

	r.ComputeDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_compute_duration_seconds",
			Help:    "Compute call duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
		},
		[]string{"status"},
	)

	r.ComputeIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_compute_iterations",
			Help:    "Iterations requested per compute call",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
		},
	)

	r.ComputeNodes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_compute_nodes",
			Help:    "Node count of the session per compute call",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
	)

	r.DroppedNodesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "layout_dropped_nodes_total",
			Help: "Nodes dropped at create time because their id duplicated an earlier node",
		},
	)

	r.DroppedEdgesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "layout_dropped_edges_total",
			Help: "Edges dropped at create time because an endpoint was unknown",
		},
	)
}
