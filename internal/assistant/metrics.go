package assistant

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts orchestration events. All counters are per-process;
// sessions share them.
type Metrics struct {
	TurnsTotal       *prometheus.CounterVec
	ReflectionsTotal prometheus.Counter
	FailuresTotal    prometheus.Counter
}

// NewMetrics creates and registers the orchestration metrics. A nil
// registerer skips registration, which tests use to avoid duplicate
// registration across cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atlasbot_turns_total",
			Help: "Conversation turns processed, labeled by the domain that answered.",
		}, []string{"domain"}),
		ReflectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlasbot_reflections_total",
			Help: "Turns retried with the alternate task agent after a decline.",
		}),
		FailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "atlasbot_turn_failures_total",
			Help: "Turns that ended in a generic apology due to an internal failure.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.TurnsTotal, m.ReflectionsTotal, m.FailuresTotal)
	}
	return m
}
