package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questradar_gate_decisions_total",
			Help: "Notification gate decisions by reason.",
		},
		[]string{"reason"},
	)
	sendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questradar_notify_send_total",
			Help: "Notification send attempts by sender and status.",
		},
		[]string{"sender", "status"},
	)
	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "questradar_notify_send_duration_seconds",
			Help:    "Duration of outbound notification requests.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"sender"},
	)
)

// ObserveDecision counts a gate outcome.
func ObserveDecision(d Decision) {
	gateDecisionsTotal.WithLabelValues(string(d.Reason)).Inc()
}

// ObserveSend records one delivery attempt for a sender.
func ObserveSend(sender string, seconds float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sendTotal.WithLabelValues(sender, status).Inc()
	sendDuration.WithLabelValues(sender).Observe(seconds)
}
