package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "precip"

// Metrics holds the Prometheus counters, histograms, and gauges for the contour service.
type Metrics struct {
	Requests           *prometheus.CounterVec   // labels: source={gfs,gpm}, mode={vector,image,binary}, outcome={success,error}
	ProcessingDuration *prometheus.HistogramVec // labels: source
	ServiceRunning     prometheus.Gauge

	// Grid processing metrics.
	ShapeOutcomes   *prometheus.CounterVec // labels: outcome
	WindowFallbacks prometheus.Counter
	PolygonsEmitted prometheus.Histogram

	// Upstream fetch metrics.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,error}
	UpstreamDuration prometheus.Histogram

	// Publishing metrics.
	ContoursPublished prometheus.Counter
	PublishErrors     prometheus.Counter
	PublishEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Contour and raster requests by source, mode and outcome.",
		}, []string{"source", "mode", "outcome"}),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Duration of load, normalize and render for one request.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		ServiceRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_running",
			Help:      "1 when the service is accepting requests, 0 when shut down.",
		}),
		ShapeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_outcomes_total",
			Help:      "Grid normalizations by shape-resolution outcome.",
		}, []string{"outcome"}),
		WindowFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_fallbacks_total",
			Help:      "Window selections that needed swapped latitude bounds.",
		}),
		PolygonsEmitted: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "polygons_per_result",
			Help:      "Number of contour polygons per vectorized grid.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Model grid downloads by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Model grid download and decode duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}),
		ContoursPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contours_published_total",
			Help:      "Contour collections written to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Contour collections that failed to publish.",
		}),
		PublishEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "publish_enabled",
			Help:      "1 when contour publishing is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.Requests,
		m.ProcessingDuration,
		m.ServiceRunning,
		m.ShapeOutcomes,
		m.WindowFallbacks,
		m.PolygonsEmitted,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.ContoursPublished,
		m.PublishErrors,
		m.PublishEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		Requests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "requests_total"}, []string{"source", "mode", "outcome"}),
		ProcessingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "processing_duration_seconds"}, []string{"source"}),
		ServiceRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "service_running"}),
		ShapeOutcomes:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "normalize_outcomes_total"}, []string{"outcome"}),
		WindowFallbacks:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "window_fallbacks_total"}),
		PolygonsEmitted:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "polygons_per_result"}),
		UpstreamRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "upstream_requests_total"}, []string{"outcome"}),
		UpstreamDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "upstream_duration_seconds"}),
		ContoursPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "contours_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
		PublishEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "publish_enabled"}),
	}
}
