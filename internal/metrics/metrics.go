package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	TasksApproved    prometheus.Counter
	TasksDeclined    prometheus.Counter
	PenaltiesApplied prometheus.Counter
	PenaltiesUndone  prometheus.Counter
	XPCredited       prometheus.Counter
	MinutesGranted   prometheus.Counter
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TasksApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envive_tasks_approved_total",
			Help: "Task assignments approved.",
		}),
		TasksDeclined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envive_tasks_declined_total",
			Help: "Task assignments declined.",
		}),
		PenaltiesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envive_trust_penalties_total",
			Help: "Trust penalties appended to the ledger.",
		}),
		PenaltiesUndone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envive_trust_penalty_undos_total",
			Help: "Trust penalty undo events appended to the ledger.",
		}),
		XPCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envive_xp_credited_total",
			Help: "XP credited for approved tasks.",
		}),
		MinutesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "envive_minutes_granted_total",
			Help: "Screen-time minutes granted for approved tasks.",
		}),
	}
	reg.MustRegister(
		m.TasksApproved, m.TasksDeclined,
		m.PenaltiesApplied, m.PenaltiesUndone,
		m.XPCredited, m.MinutesGranted,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
