// Package monitoring exposes the console's operational counters over
// Prometheus. Everything hangs off a private registry so tests can create
// as many instances as they like without collector collisions.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects counters for the order sync engine.
type Metrics struct {
	registry *prometheus.Registry

	OrdersIngested  *prometheus.CounterVec
	InputsDropped   *prometheus.CounterVec
	Reconnects      prometheus.Counter
	SnapshotLoads   *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	Rollbacks       prometheus.Counter
	ConnectionState prometheus.Gauge
	ToastsPosted    prometheus.Counter
	CuesSuppressed  prometheus.Counter
}

// NewMetrics creates and registers all console collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrdersIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gocha_orders_ingested_total",
			Help: "Orders merged into the collection, by source.",
		}, []string{"source"}),
		InputsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gocha_inputs_dropped_total",
			Help: "Malformed snapshot rows and push events dropped, by source.",
		}, []string{"source"}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gocha_push_reconnects_total",
			Help: "Push channel connection attempts after the first.",
		}),
		SnapshotLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gocha_snapshot_loads_total",
			Help: "Snapshot fetches against the order query service, by result.",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gocha_status_commands_total",
			Help: "Status update commands sent to the order command service, by result.",
		}, []string{"result"}),
		Rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gocha_status_rollbacks_total",
			Help: "Optimistic status changes reverted after a failed command.",
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gocha_push_connection_state",
			Help: "Push channel state: 0 disconnected, 1 connecting, 2 joined.",
		}),
		ToastsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gocha_toasts_posted_total",
			Help: "Toast notifications handed to the presentation layer.",
		}),
		CuesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gocha_audio_cues_suppressed_total",
			Help: "Audible cues skipped because no user interaction was observed yet.",
		}),
	}

	m.registry.MustRegister(
		m.OrdersIngested,
		m.InputsDropped,
		m.Reconnects,
		m.SnapshotLoads,
		m.Commands,
		m.Rollbacks,
		m.ConnectionState,
		m.ToastsPosted,
		m.CuesSuppressed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the registry for tests.
func (m *Metrics) Gather() prometheus.Gatherer {
	return m.registry
}

// Label values used across the engine.
const (
	SourceSnapshot = "snapshot"
	SourcePush     = "push"

	ResultOK    = "ok"
	ResultError = "error"
)
