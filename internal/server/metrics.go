package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/elksvg/pkg/observability"
)

const namespace = "elksvg"

// Metrics exports pipeline, cache and HTTP events as Prometheus metrics.
// It implements every hook interface of pkg/observability.
type Metrics struct {
	registry *prometheus.Registry

	decodeDuration  *prometheus.HistogramVec
	renderDuration  *prometheus.HistogramVec
	convertDuration *prometheus.HistogramVec
	renderErrors    *prometheus.CounterVec
	inFlight        *prometheus.GaugeVec
	documentNodes   prometheus.Histogram
	documentEdges   prometheus.Histogram
	artifactBytes   *prometheus.HistogramVec

	cacheRequests *prometheus.CounterVec
	cacheWrites   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with a fresh
// registry, so several servers (or tests) can coexist in one process.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		decodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "decode_duration_seconds",
			Help:      "Time spent decoding layout documents",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"input_format", "status"}),

		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "render_duration_seconds",
			Help:      "Time spent emitting SVG markup",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"format", "status"}),

		convertDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "convert_duration_seconds",
			Help:      "Time spent converting SVG to PDF or PNG",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"format", "status"}),

		renderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Failed pipeline stages",
		}, []string{"stage"}),

		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "renders_in_flight",
			Help:      "Renders currently running",
		}, []string{"format"}),

		documentNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "nodes",
			Help:      "Nodes per decoded document",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),

		documentEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "edges",
			Help:      "Edges per decoded document",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),

		artifactBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "artifact_bytes",
			Help:      "Size of converted artifacts",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"format"}),

		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by result",
		}, []string{"key_type", "result"}),

		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "writes_total",
			Help:      "Cache writes",
		}, []string{"key_type"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.decodeDuration, m.renderDuration, m.convertDuration, m.renderErrors,
		m.inFlight, m.documentNodes, m.documentEdges, m.artifactBytes,
		m.cacheRequests, m.cacheWrites,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Install registers m as the global pipeline, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

func (m *Metrics) OnDecodeComplete(_ context.Context, inputFormat string, stats observability.DocumentStats, d time.Duration, err error) {
	m.decodeDuration.WithLabelValues(inputFormat, status(err)).Observe(d.Seconds())
	if err != nil {
		m.renderErrors.WithLabelValues("decode").Inc()
		return
	}
	m.documentNodes.Observe(float64(stats.Nodes))
	m.documentEdges.Observe(float64(stats.Edges))
}

func (m *Metrics) OnRenderStart(_ context.Context, format string) {
	m.inFlight.WithLabelValues(format).Inc()
}

func (m *Metrics) OnRenderComplete(_ context.Context, format string, _ observability.DocumentStats, d time.Duration, err error) {
	m.inFlight.WithLabelValues(format).Dec()
	m.renderDuration.WithLabelValues(format, status(err)).Observe(d.Seconds())
	if err != nil {
		m.renderErrors.WithLabelValues("render").Inc()
	}
}

func (m *Metrics) OnConvertComplete(_ context.Context, format string, size int, d time.Duration, err error) {
	m.convertDuration.WithLabelValues(format, status(err)).Observe(d.Seconds())
	if err != nil {
		m.renderErrors.WithLabelValues("convert").Inc()
		return
	}
	m.artifactBytes.WithLabelValues(format).Observe(float64(size))
}

// =============================================================================
// Cache Hooks
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.cacheWrites.WithLabelValues(keyType).Inc()
}

// =============================================================================
// HTTP Hooks
// =============================================================================

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
