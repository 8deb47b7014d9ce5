package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	MatchesCreated       *prometheus.CounterVec
	NoCounterpart        *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	MatchDuration        prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		MatchesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_matches_created_total",
			Help: "Matches created, by trigger (donor, receiver, manual)",
		}, []string{"trigger"}),
		NoCounterpart: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_match_attempts_without_counterpart_total",
			Help: "Match attempts that found no compatible counterpart, by trigger",
		}, []string{"trigger"}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kitmatch_match_notification_failures_total",
			Help: "Matches whose notification dispatch failed after commit",
		}),
		MatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kitmatch_match_transaction_duration_seconds",
			Help:    "Duration of match transactions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}),
	}
}

func (m *Metrics) IncrementMatchesCreated(trigger string) {
	if m == nil {
		return
	}
	m.MatchesCreated.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncrementNoCounterpart(trigger string) {
	if m == nil {
		return
	}
	m.NoCounterpart.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncrementNotificationFailures() {
	if m == nil {
		return
	}
	m.NotificationFailures.Inc()
}

func (m *Metrics) ObserveMatchDuration(seconds float64) {
	if m == nil {
		return
	}
	m.MatchDuration.Observe(seconds)
}
