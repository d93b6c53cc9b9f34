package proxy

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finassist_chat_outcomes_total",
				Help: "Chat turns by outcome (ok or the failure kind).",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(m.requests, m.duration, m.outcomes)
	return m
}

func (m *metrics) outcome(label string) {
	m.outcomes.WithLabelValues(label).Inc()
}
