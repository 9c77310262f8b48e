// Package metrics exposes Prometheus instrumentation for the detection
// pipeline on a dedicated registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the process-wide Prometheus registry and the pipeline
// collectors. A nil *Recorder is valid and records nothing, so callers do
// not have to branch on whether metrics are enabled.
type Recorder struct {
	registry *prometheus.Registry

	framesProcessed   prometheus.Counter
	frameFailures     prometheus.Counter
	inferenceSeconds  prometheus.Histogram
	activeConnections prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.framesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_frames_processed_total",
		Help: "Frames that completed inference successfully",
	})
	r.frameFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "detection_frame_failures_total",
		Help: "Frames whose inference or decode stage failed",
	})
	r.inferenceSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "detection_inference_seconds",
		Help:    "Per-frame inference plus postprocessing latency",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})
	r.activeConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "detection_active_connections",
		Help: "Currently open peer connections",
	})

	r.registry.MustRegister(
		r.framesProcessed,
		r.frameFailures,
		r.inferenceSeconds,
		r.activeConnections,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ObserveInference(seconds float64) {
	if r == nil {
		return
	}
	r.framesProcessed.Inc()
	r.inferenceSeconds.Observe(seconds)
}

func (r *Recorder) FrameFailed() {
	if r == nil {
		return
	}
	r.frameFailures.Inc()
}

func (r *Recorder) ConnectionOpened() {
	if r == nil {
		return
	}
	r.activeConnections.Inc()
}

func (r *Recorder) ConnectionClosed() {
	if r == nil {
		return
	}
	r.activeConnections.Dec()
}
