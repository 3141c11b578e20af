// Package metrics exposes Prometheus counters for webhook traffic
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Webhook outcomes
const (
	OutcomeAccepted     = "accepted"
	OutcomeBadSignature = "bad_signature"
	OutcomeBadPayload   = "bad_payload"
)

// Metrics holds the collectors of one server instance
type Metrics struct {
	registry    *prometheus.Registry
	webhooks    *prometheus.CounterVec
	amount      *prometheus.CounterVec
	subscribers prometheus.Gauge
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spw",
			Name:      "webhooks_total",
			Help:      "Webhooks received, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		amount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spw",
			Name:      "webhook_amount_total",
			Help:      "AR moved by accepted webhooks, by kind.",
		}, []string{"kind"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "spw",
			Name:      "feed_subscribers",
			Help:      "Connected live feed subscribers.",
		}),
	}

	m.registry.MustRegister(
		m.webhooks,
		m.amount,
		m.subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveWebhook counts a webhook outcome. Amount is added only for
// accepted webhooks.
func (m *Metrics) ObserveWebhook(kind, outcome string, amount int) {
	m.webhooks.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeAccepted && amount > 0 {
		m.amount.WithLabelValues(kind).Add(float64(amount))
	}
}

// SubscriberConnected tracks a new feed connection
func (m *Metrics) SubscriberConnected() {
	m.subscribers.Inc()
}

// SubscriberDisconnected tracks a closed feed connection
func (m *Metrics) SubscriberDisconnected() {
	m.subscribers.Dec()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
