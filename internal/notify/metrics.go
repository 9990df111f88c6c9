package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalguard",
			Name:      "notifications_total",
			Help:      "Notifications dispatched, by channel.",
		},
		[]string{"channel"},
	)

	caregiverDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalguard",
			Name:      "caregiver_deliveries_total",
			Help:      "Per-contact caregiver delivery attempts, by sender and result.",
		},
		[]string{"sender", "result"},
	)
)
