package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeResent  = "resent"
)

type Metrics struct {
	Notifications     *prometheus.CounterVec
	TransportFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_notifications_total",
			Help: "Match notifications by outcome (sent, failed, skipped, resent)",
		}, []string{"outcome"}),
		TransportFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kitmatch_notification_transport_failures_total",
			Help: "Failed deliveries by transport",
		}, []string{"transport"}),
	}
}

func (m *Metrics) IncrementNotifications(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementTransportFailures(transport string) {
	if m == nil {
		return
	}
	m.TransportFailures.WithLabelValues(transport).Inc()
}
