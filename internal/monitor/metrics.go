package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questradar_cycles_total",
			Help: "Completed polling cycles by result.",
		},
		[]string{"result"},
	)
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "questradar_cycle_duration_seconds",
			Help:    "Wall time of one polling cycle.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
	)
	fetchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "questradar_fetch_failures_total",
			Help: "Upstream fetches that failed and degraded to no campaign.",
		},
	)
	trackedProjects = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "questradar_tracked_projects",
			Help: "Projects in the latest published snapshot.",
		},
	)
)
