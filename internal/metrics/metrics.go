package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscape_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mindscape_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Webhook pipeline metrics
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscape_webhook_events_total",
			Help: "Carrier webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	WebhookSignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindscape_webhook_signature_failures_total",
			Help: "Webhook deliveries rejected by signature verification",
		},
	)

	InboundDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscape_inbound_dropped_total",
			Help: "Inbound messages dropped by filtering policy",
		},
		[]string{"reason"},
	)

	// Carrier metrics
	CarrierSends = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscape_carrier_sends_total",
			Help: "Outbound carrier send attempts by result",
		},
		[]string{"result"}, // "ok" or "error"
	)

	// Real-time metrics
	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mindscape_stream_connections",
			Help: "Live stream connections registered with the broadcaster",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscape_events_published_total",
			Help: "Events published to live connections by type",
		},
		[]string{"type"},
	)

	EventDeliveryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mindscape_event_delivery_failures_total",
			Help: "Event writes that failed and evicted a connection",
		},
	)
)
