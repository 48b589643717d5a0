package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quizhall_submissions_total",
		Help: "Answer submissions by outcome.",
	}, []string{"outcome"})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quizhall_live_sessions",
		Help: "Sessions currently resident in the registry.",
	})
)
