// Package metrics provides ambient Prometheus metrics for the agent's own
// health — components started/stopped, throttle state, pipeline lag —
// distinct from the per-record CloudWatch-EMF path sinks emit to.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the agent registers.
type Metrics struct {
	ComponentStarts *prometheus.CounterVec
	ComponentStops  *prometheus.CounterVec
	ComponentErrors *prometheus.CounterVec

	ThrottleConsecutiveErrors *prometheus.GaugeVec
	FailoverEvents            *prometheus.CounterVec

	SourceEnvelopesEmitted *prometheus.CounterVec
	SinkFlushDuration      *prometheus.HistogramVec
	SinkFlushTotal         *prometheus.CounterVec

	DependencyAvailable *prometheus.GaugeVec
}

func New(serviceName string) *Metrics {
	return NewWithRegistry(serviceName, prometheus.DefaultRegisterer)
}

func NewWithRegistry(serviceName string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		ComponentStarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_component_starts_total", Help: "Total component start invocations"},
			[]string{"service", "component"},
		),
		ComponentStops: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_component_stops_total", Help: "Total component stop invocations"},
			[]string{"service", "component"},
		),
		ComponentErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_component_errors_total", Help: "Total isolated component start/stop errors"},
			[]string{"service", "component"},
		),
		ThrottleConsecutiveErrors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "agent_sink_consecutive_errors", Help: "Current consecutive error count per sink"},
			[]string{"service", "sink"},
		),
		FailoverEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_sink_failover_total", Help: "Total failover transitions per sink"},
			[]string{"service", "sink", "trigger"},
		),
		SourceEnvelopesEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_source_envelopes_total", Help: "Total envelopes emitted per source"},
			[]string{"service", "source"},
		),
		SinkFlushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_sink_flush_duration_seconds",
				Help:    "Sink flush call duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "sink"},
		),
		SinkFlushTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agent_sink_flush_total", Help: "Total sink flush calls by result"},
			[]string{"service", "sink", "status"},
		),
		DependencyAvailable: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "agent_dependency_available", Help: "1 if a dependency is currently available, else 0"},
			[]string{"service", "dependency"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.ComponentStarts,
			m.ComponentStops,
			m.ComponentErrors,
			m.ThrottleConsecutiveErrors,
			m.FailoverEvents,
			m.SourceEnvelopesEmitted,
			m.SinkFlushDuration,
			m.SinkFlushTotal,
			m.DependencyAvailable,
		)
	}

	return m
}

var (
	global   *Metrics
	globalMu sync.Mutex
)

func Init(serviceName string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(serviceName)
	}
	return global
}

func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("unknown")
	}
	return global
}
