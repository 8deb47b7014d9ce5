package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_registrations_total",
			Help: "Public registrations, by kind (donor, receiver) and outcome (accepted, invalid, duplicate, failed)",
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) IncrementRegistration(kind, outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(kind, outcome).Inc()
}
