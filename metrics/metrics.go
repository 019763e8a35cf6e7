// Package metrics provides Prometheus metrics for the gaze pipeline and the
// focus engine.
//
// A nil *Manager is valid and records nothing, so components can be built
// without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the glimpsh collectors and the registry they live in.
type Manager struct {
	namespace    string
	dwellBuckets []float64
	registry     *prometheus.Registry

	samplesReceived prometheus.Counter
	decodeErrors    prometheus.Counter
	remoteErrors    prometheus.Counter
	connections     prometheus.Counter
	disconnections  prometheus.Counter
	connected       prometheus.Gauge
	focusChanges    *prometheus.CounterVec
	dwellDuration   prometheus.Histogram
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithDwellBuckets sets histogram buckets (in seconds) for dwell durations.
func WithDwellBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.dwellBuckets = buckets
		}
	}
}

// WithRegistry registers collectors on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates a Manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:    "glimpsh",
		dwellBuckets: []float64{0.1, 0.2, 0.3, 0.5, 0.75, 1, 2, 5},
		registry:     prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.samplesReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gaze",
		Name:      "samples_received_total",
		Help:      "Gaze samples decoded from the gaze source",
	})
	m.decodeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gaze",
		Name:      "decode_errors_total",
		Help:      "Messages dropped because they could not be decoded",
	})
	m.remoteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gaze",
		Name:      "remote_errors_total",
		Help:      "Error messages reported by the gaze source",
	})
	m.connections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gaze",
		Name:      "connections_total",
		Help:      "Successful connections to the gaze source",
	})
	m.disconnections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "gaze",
		Name:      "disconnections_total",
		Help:      "Connections to the gaze source that ended",
	})
	m.connected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "gaze",
		Name:      "connected",
		Help:      "1 while connected to the gaze source",
	})
	m.focusChanges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "focus",
		Name:      "changes_total",
		Help:      "Committed focus changes by source",
	}, []string{"source"})
	m.dwellDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "focus",
		Name:      "dwell_seconds",
		Help:      "Time gaze rested on a pane before it took focus",
		Buckets:   m.dwellBuckets,
	})
}

// Registry returns the registry holding the collectors.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) SampleReceived() {
	if m == nil {
		return
	}
	m.samplesReceived.Inc()
}

func (m *Manager) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Manager) RemoteError() {
	if m == nil {
		return
	}
	m.remoteErrors.Inc()
}

func (m *Manager) Connected() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.connected.Set(1)
}

func (m *Manager) Disconnected() {
	if m == nil {
		return
	}
	m.disconnections.Inc()
	m.connected.Set(0)
}

// FocusChanged counts a committed focus change from source ("dwell" or "manual").
func (m *Manager) FocusChanged(source string) {
	if m == nil {
		return
	}
	m.focusChanges.WithLabelValues(source).Inc()
}

// DwellCommitted observes how long gaze dwelled before a commit.
func (m *Manager) DwellCommitted(d time.Duration) {
	if m == nil {
		return
	}
	m.dwellDuration.Observe(d.Seconds())
}
