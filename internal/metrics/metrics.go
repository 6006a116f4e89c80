// Package metrics exposes Prometheus collectors for extraction, marker
// recognition, event fan-out and persistence.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sowilo"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	extractions     prometheus.Counter
	extractDuration prometheus.Histogram
	markers         *prometheus.CounterVec
	events          *prometheus.CounterVec
	persistWrites   *prometheus.CounterVec
	notes           prometheus.Gauge
}

// New creates and registers all collectors, including the Go runtime ones.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		extractions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Connection extractions performed.",
		}),
		extractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting connections from one document.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		markers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_recognized_total",
			Help:      "Inline markers recognized while typing or pasting.",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events broadcast to observers and SSE clients.",
		}, []string{"type"}),
		persistWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_writes_total",
			Help:      "Durable snapshot writes by key and result.",
		}, []string{"key", "result"}),
		notes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notes",
			Help:      "Notes currently in the workspace.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.extractions, m.extractDuration, m.markers, m.events, m.persistWrites, m.notes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveExtraction records one extraction.
func (m *Metrics) ObserveExtraction(d time.Duration) {
	m.extractions.Inc()
	m.extractDuration.Observe(d.Seconds())
}

// MarkerRecognized counts one recognized marker of kind.
func (m *Metrics) MarkerRecognized(kind string) {
	m.markers.WithLabelValues(kind).Inc()
}

// EventPublished counts one broadcast event.
func (m *Metrics) EventPublished(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

// PersistSucceeded counts a successful write of key.
func (m *Metrics) PersistSucceeded(key string) {
	m.persistWrites.WithLabelValues(key, "ok").Inc()
}

// PersistFailed counts a failed write of key.
func (m *Metrics) PersistFailed(key string, _ error) {
	m.persistWrites.WithLabelValues(key, "error").Inc()
}

// SetNotes records the current note count.
func (m *Metrics) SetNotes(n int) {
	m.notes.Set(float64(n))
}
