package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initServerMetrics() {
	r.RequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_requests_total",
			Help: "Total number of wire requests served",
		},
		[]string{"type", "status"},
	)

	r.RequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_request_duration_seconds",
			Help:    "Wire request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	r.RequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_requests_in_flight",
			Help: "Current number of wire requests being processed",
		},
	)

	r.RequestSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_request_size_bytes",
			Help:    "Received frame size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"type"},
	)

	r.ResponseSizeBytes = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_response_size_bytes",
			Help:    "Sent frame size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		},
		[]string{"type"},
	)

	r.CompressedFramesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_compressed_frames_total",
			Help: "Frames whose payload travelled snappy-compressed",
		},
		[]string{"direction"},
	)

	r.BadFramesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "layout_bad_frames_total",
			Help: "Messages rejected before dispatch: bad checksum, truncation, or length mismatch",
		},
	)
}
