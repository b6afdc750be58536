package metrics

import (
	"runtime"
	"time"
)

// RecordSessionCreated records a successful create along with the inputs the
// session filtered out while building its working set.
func (r *Registry) RecordSessionCreated(droppedNodes, droppedEdges int) {
	r.SessionsCreatedTotal.Inc()
	r.DroppedNodesTotal.Add(float64(droppedNodes))
	r.DroppedEdgesTotal.Add(float64(droppedEdges))
}

// RecordSessionDestroyed records an explicit destroy.
func (r *Registry) RecordSessionDestroyed() {
	r.SessionsDestroyedTotal.Inc()
}

// RecordSessionsEvicted records idle sessions reaped by the janitor.
func (r *Registry) RecordSessionsEvicted(count int) {
	r.SessionsEvictedTotal.Add(float64(count))
}

// SetActiveSessions updates the live session gauge.
func (r *Registry) SetActiveSessions(count int) {
	r.SessionsActive.Set(float64(count))
}

// RecordCompute records one compute call with its duration and shape.
func (r *Registry) RecordCompute(status string, duration time.Duration, iterations, nodeCount int) {
	r.ComputesTotal.WithLabelValues(status).Inc()
	r.ComputeDuration.WithLabelValues(status).Observe(duration.Seconds())
	r.ComputeIterations.Observe(float64(iterations))
	r.ComputeNodes.Observe(float64(nodeCount))
}

// RecordRequest records a served wire request with its duration and frame
// sizes in both directions.
func (r *Registry) RecordRequest(msgType, status string, duration time.Duration, requestBytes, responseBytes int) {
	r.RequestsTotal.WithLabelValues(msgType, status).Inc()
	r.RequestDuration.WithLabelValues(msgType).Observe(duration.Seconds())
	r.RequestSizeBytes.WithLabelValues(msgType).Observe(float64(requestBytes))
	r.ResponseSizeBytes.WithLabelValues(msgType).Observe(float64(responseBytes))
}

// RecordCompressedFrame counts a frame whose payload travelled compressed.
// Direction is "inbound" or "outbound".
func (r *Registry) RecordCompressedFrame(direction string) {
	r.CompressedFramesTotal.WithLabelValues(direction).Inc()
}

// RecordBadFrame counts a message rejected before dispatch.
func (r *Registry) RecordBadFrame() {
	r.BadFramesTotal.Inc()
}

// UpdateSystemMetrics refreshes the uptime, goroutine, and memory gauges.
// The daemon calls this periodically from its janitor loop.
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
