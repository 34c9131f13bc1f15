package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the relay's Prometheus collectors.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	KeysPublished   prometheus.Counter
	EnvelopesQueued prometheus.Counter
	EnvelopesAcked  prometheus.Counter
	Verifications   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_request_count",
				Help: "Number of HTTP requests handled",
			},
			[]string{"method", "route", "code"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_request_latency_seconds",
				Help:    "Latency of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		KeysPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_keys_published_total",
			Help: "Number of accepted publish requests",
		}),
		EnvelopesQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_envelopes_queued_total",
			Help: "Number of envelopes accepted into mailboxes",
		}),
		EnvelopesAcked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_envelopes_acked_total",
			Help: "Number of envelopes removed by acknowledgement",
		}),
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_verifications_total",
				Help: "Signature verifications by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		m.RequestCount,
		m.RequestLatency,
		m.KeysPublished,
		m.EnvelopesQueued,
		m.EnvelopesAcked,
		m.Verifications,
	)
	return m
}
