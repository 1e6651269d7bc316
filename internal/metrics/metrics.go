package metrics

import (
	"math"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/denis-giri/pdraw/pkg/types"
)

// Metrics holds all render pipeline metrics
type Metrics struct {
	// Decoder side
	FramesDecoded       atomic.Uint64
	DecoderQueueDropped atomic.Uint64

	// Render cycle counters
	Cycles           atomic.Uint64
	IdleCycles       atomic.Uint64
	FramesDequeued   atomic.Uint64
	FramesSkipped    atomic.Uint64 // superseded by a newer frame in the same cycle
	FramesRendered   atomic.Uint64
	FramesSuppressed atomic.Uint64 // drained while the render region was empty

	// Error counters
	DequeueErrors       atomic.Uint64
	RenderErrors        atomic.Uint64
	ReleaseErrors       atomic.Uint64
	UnknownColorFormats atomic.Uint64

	// Latest latency report, stored as float64 bits
	decodeLatencyMs   atomic.Uint64
	renderLatencyMs   atomic.Uint64
	endToEndLatencyMs atomic.Uint64

	// Telemetry viewers
	TelemetryClients atomic.Uint64

	latency  *prometheus.HistogramVec
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "render_latency_ms",
				Help:    "Per-frame latency in milliseconds by stage",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 33, 50, 100, 200, 500},
			},
			[]string{"stage"},
		),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) gauge(name, help string, read func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		read,
	))
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.counter("decoder_frames_decoded_total", "Total frames produced by the decoder", &m.FramesDecoded)
	m.counter("decoder_queue_dropped_total", "Frames released by the decoder because an output queue was full", &m.DecoderQueueDropped)

	m.counter("render_cycles_total", "Total render cycles", &m.Cycles)
	m.counter("render_idle_cycles_total", "Render cycles that yielded without a frame", &m.IdleCycles)
	m.counter("render_frames_dequeued_total", "Total frames dequeued from the decoder output queue", &m.FramesDequeued)
	m.counter("render_frames_skipped_total", "Frames superseded by a newer frame before drawing", &m.FramesSkipped)
	m.counter("render_frames_rendered_total", "Frames drawn successfully", &m.FramesRendered)
	m.counter("render_frames_suppressed_total", "Frames released without drawing because the render region is empty", &m.FramesSuppressed)

	m.counter("render_dequeue_errors_total", "Dequeue failures other than an empty queue", &m.DequeueErrors)
	m.counter("render_draw_errors_total", "Video plane or overlay draw failures", &m.RenderErrors)
	m.counter("render_release_errors_total", "Frame release failures", &m.ReleaseErrors)
	m.counter("render_unknown_color_formats_total", "Frames drawn with the planar fallback conversion", &m.UnknownColorFormats)

	m.gauge("render_decode_latency_ms", "Decode latency of the last drawn frame", func() float64 { return loadFloat(&m.decodeLatencyMs) })
	m.gauge("render_render_latency_ms", "Render latency of the last drawn frame", func() float64 { return loadFloat(&m.renderLatencyMs) })
	m.gauge("render_end_to_end_latency_ms", "End-to-end latency of the last drawn frame", func() float64 { return loadFloat(&m.endToEndLatencyMs) })

	m.gauge("telemetry_clients", "Connected telemetry viewers", func() float64 { return float64(m.TelemetryClients.Load()) })

	m.registry.MustRegister(m.latency)
}

// RecordLatency stores the latest latency report and feeds the histograms
func (m *Metrics) RecordLatency(s types.LatencySample) {
	storeFloat(&m.decodeLatencyMs, s.DecodeMs)
	storeFloat(&m.renderLatencyMs, s.RenderMs)
	storeFloat(&m.endToEndLatencyMs, s.EndToEndMs)

	m.latency.WithLabelValues("decode").Observe(s.DecodeMs)
	m.latency.WithLabelValues("render").Observe(s.RenderMs)
	if s.EndToEndMs != 0 {
		m.latency.WithLabelValues("end_to_end").Observe(s.EndToEndMs)
	}
}

// LastLatency returns the latest decode, render and end-to-end latency
func (m *Metrics) LastLatency() (decodeMs, renderMs, endToEndMs float64) {
	return loadFloat(&m.decodeLatencyMs), loadFloat(&m.renderLatencyMs), loadFloat(&m.endToEndLatencyMs)
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func storeFloat(v *atomic.Uint64, f float64) {
	v.Store(math.Float64bits(f))
}

func loadFloat(v *atomic.Uint64) float64 {
	return math.Float64frombits(v.Load())
}
