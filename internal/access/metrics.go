package access

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts directory lookups and access decisions. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	DirectoryLookups *prometheus.CounterVec
	Decisions        *prometheus.CounterVec
	GateRejections   *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		DirectoryLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_module_directory_lookups_total",
				Help: "Module directory lookups by result",
			},
			[]string{"result"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_access_decisions_total",
				Help: "Permission decisions by outcome and reason",
			},
			[]string{"outcome", "reason"},
		),
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_access_gate_rejections_total",
				Help: "Requests rejected by an access gate",
			},
			[]string{"gate", "code"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(m.DirectoryLookups, m.Decisions, m.GateRejections)
	}
	return m
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.DirectoryLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) decision(d Decision) {
	if m == nil {
		return
	}
	outcome := "deny"
	if d.Allowed {
		outcome = "allow"
	}
	m.Decisions.WithLabelValues(outcome, string(d.Reason)).Inc()
}

func (m *Metrics) rejection(gate, code string) {
	if m == nil {
		return
	}
	m.GateRejections.WithLabelValues(gate, code).Inc()
}
