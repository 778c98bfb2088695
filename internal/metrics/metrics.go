package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the service exports.
type Metrics struct {
	VotesSaved          *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	AggregationDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// Passing a fresh prometheus.Registry keeps tests independent of the default one.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VotesSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tally",
				Name:      "votes_saved_total",
				Help:      "Vote record saves by outcome (created, updated, invalid, failed).",
			},
			[]string{"result"},
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "tally",
				Name:      "login_attempts_total",
				Help:      "Admin login attempts by outcome.",
			},
			[]string{"result"},
		),
		AggregationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "tally",
				Name:      "aggregation_duration_seconds",
				Help:      "Time to load and aggregate one read view.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{"view"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.VotesSaved, m.LoginAttempts, m.AggregationDuration)
	}
	return m
}

// Nop returns unregistered collectors, for callers that do not export metrics.
func Nop() *Metrics {
	return New(nil)
}
