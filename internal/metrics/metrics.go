// Package metrics holds the Prometheus instruments for committee sessions.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds session counters and gauges
type Metrics struct {
	registry *prometheus.Registry

	mutations        *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	votes            *prometheus.CounterVec
	yieldedSeconds   prometheus.Counter
	ticks            prometheus.Counter
	tickLoops        prometheus.Gauge
	snapshotFailures prometheus.Counter
	activityFailures prometheus.Counter
	wsClients        prometheus.Gauge
}

// New registers every instrument on a fresh registry together with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics(reg)
	m.registry = reg
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.mutations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_session_mutations_total",
			Help: "applied session transitions by operation",
		},
		[]string{"op"},
	)
	m.rejections = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_session_rejections_total",
			Help: "session commands rejected by kind of error",
		},
		[]string{"op", "kind"},
	)
	m.votes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gavel_motion_votes_total",
			Help: "recorded motion votes by outcome",
		},
		[]string{"result"},
	)
	m.yieldedSeconds = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_yielded_seconds_total",
			Help: "speaking seconds transferred by yields",
		},
	)
	m.ticks = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_timer_ticks_total",
			Help: "timer ticks applied to running sessions",
		},
	)
	m.tickLoops = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "gavel_timer_loops",
			Help: "tick goroutines currently running",
		},
	)
	m.snapshotFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_snapshot_failures_total",
			Help: "session snapshots that could not be persisted",
		},
	)
	m.activityFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "gavel_activity_failures_total",
			Help: "activity log entries that could not be written",
		},
	)
	m.wsClients = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "gavel_websocket_clients",
			Help: "connected websocket clients",
		},
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil || m.registry == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) Mutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) Rejected(op, kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) Vote(passed bool) {
	if m == nil {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	m.votes.WithLabelValues(result).Inc()
}

func (m *Metrics) Yielded(seconds int) {
	if m == nil || seconds <= 0 {
		return
	}
	m.yieldedSeconds.Add(float64(seconds))
}

func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func (m *Metrics) TickLoopStarted() {
	if m == nil {
		return
	}
	m.tickLoops.Inc()
}

func (m *Metrics) TickLoopStopped() {
	if m == nil {
		return
	}
	m.tickLoops.Dec()
}

func (m *Metrics) SnapshotFailed() {
	if m == nil {
		return
	}
	m.snapshotFailures.Inc()
}

func (m *Metrics) ActivityFailed() {
	if m == nil {
		return
	}
	m.activityFailures.Inc()
}

func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.wsClients.Inc()
}

func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.wsClients.Dec()
}
