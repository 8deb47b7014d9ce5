package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejections      *prometheus.CounterVec
	StoreFailures   prometheus.Counter
	PolicyDecisions *prometheus.CounterVec
	BreakerOpen     prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_ratelimit_rejections_total",
			Help: "Requests rejected by the rate limiter, by action",
		}, []string{"action"}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kitmatch_ratelimit_store_failures_total",
			Help: "Counter store calls that failed",
		}),
		PolicyDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_ratelimit_policy_decisions_total",
			Help: "Checks decided by the failure policy instead of the counter store",
		}, []string{"policy"}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kitmatch_ratelimit_breaker_open",
			Help: "1 while the counter store circuit breaker is open",
		}),
	}
}

func (m *Metrics) IncrementRejections(action string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementStoreFailures() {
	if m == nil {
		return
	}
	m.StoreFailures.Inc()
}

func (m *Metrics) IncrementPolicyDecisions(policy string) {
	if m == nil {
		return
	}
	m.PolicyDecisions.WithLabelValues(policy).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerOpen.Set(1)
		return
	}
	m.BreakerOpen.Set(0)
}
