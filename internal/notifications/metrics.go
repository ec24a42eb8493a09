package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forestgate"

var (
	notificationsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "written_total",
			Help:      "Notifications stored, by type",
		},
		[]string{"type"},
	)

	notificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "failed_total",
			Help:      "Notifications that could not be rendered or stored, by type",
		},
		[]string{"type"},
	)
)

func recordWritten(typ string, n int) {
	notificationsWritten.WithLabelValues(typ).Add(float64(n))
}

func recordFailed(typ string, n int) {
	notificationsFailed.WithLabelValues(typ).Add(float64(n))
}
