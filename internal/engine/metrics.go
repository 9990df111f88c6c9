package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vitalguard",
			Name:      "engine_transitions_total",
			Help:      "Alert level transitions.",
		},
		[]string{"from", "to"},
	)

	missedDosesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vitalguard",
			Name:      "missed_doses_total",
			Help:      "Missed-dose events raised by the compliance scheduler.",
		},
	)
)
