package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the counters exposed on /metrics.
type metrics struct {
	responses  *prometheus.CounterVec   // by route and outcome
	handshakes *prometheus.CounterVec   // by handshake and state
	logged     prometheus.Counter       // message_logger bodies stored
	duration   *prometheus.HistogramVec // by route
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "webhook",
			Name:      "responses_total",
			Help:      "Webhook replies by route and outcome",
		}, []string{"route", "outcome"}), // outcome: ok, not_found, encode_error

		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "handshake",
			Name:      "transitions_total",
			Help:      "Handshake continuations by handshake and resulting state",
		}, []string{"handshake", "state"}),

		logged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "botkit",
			Subsystem: "message_log",
			Name:      "entries_total",
			Help:      "Bodies stored by the message_logger webhook",
		}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "botkit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route"}),
	}
	reg.MustRegister(m.responses, m.handshakes, m.logged, m.duration)
	return m
}
