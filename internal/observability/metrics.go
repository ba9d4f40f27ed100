package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and gauges for the ingest and fanout
// paths.
type Metrics struct {
	IncidentsReported  prometheus.Counter
	ValidationFailures prometheus.Counter
	StorageRetries     prometheus.Counter
	DispatchWarnings   prometheus.Counter

	PublishTotal    *prometheus.CounterVec // labels: channel
	DeliveriesTotal *prometheus.CounterVec // labels: channel, outcome={ok,dropped}
	DeliveryRetries prometheus.Counter

	ActiveSessions prometheus.Gauge
	Subscriptions  prometheus.Gauge

	WebhooksSent *prometheus.CounterVec // labels: outcome={ok,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		IncidentsReported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "incidents_reported_total",
			Help:      "Total incidents durably persisted.",
		}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "validation_failures_total",
			Help:      "Total report payloads rejected before touching storage.",
		}),
		StorageRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "storage_retries_total",
			Help:      "Total transient storage failures retried by the ingestion path.",
		}),
		DispatchWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "dispatch_warnings_total",
			Help:      "Total persisted incidents whose broadcast was degraded.",
		}),
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "publish_total",
			Help:      "Events published per channel.",
		}, []string{"channel"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "deliveries_total",
			Help:      "Per-subscriber delivery outcomes per channel.",
		}, []string{"channel", "outcome"}),
		DeliveryRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "delivery_retries_total",
			Help:      "Total per-session delivery retry attempts.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon",
			Name:      "active_sessions",
			Help:      "Currently connected subscriber sessions.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beacon",
			Name:      "subscriptions",
			Help:      "Currently live channel subscriptions.",
		}),
		WebhooksSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beacon",
			Name:      "webhooks_sent_total",
			Help:      "Operator alert webhook attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IncidentsReported,
		m.ValidationFailures,
		m.StorageRetries,
		m.DispatchWarnings,
		m.PublishTotal,
		m.DeliveriesTotal,
		m.DeliveryRetries,
		m.ActiveSessions,
		m.Subscriptions,
		m.WebhooksSent,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// so parallel tests do not hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
