package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Outcomes        *prometheus.CounterVec
	ConfirmDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_pickup_outcomes_total",
			Help: "Pickup check and confirm outcomes",
		}, []string{"operation", "outcome"}),
		ConfirmDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kitmatch_pickup_confirm_duration_seconds",
			Help:    "Duration of pickup confirmations",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementOutcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveConfirmDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ConfirmDuration.Observe(seconds)
}
