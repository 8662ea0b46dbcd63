package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -----------------------------------------------------------------------------
// Prometheus metrics for the paths the core recovers from silently:
// malformed payloads, late events, reconnects, dropped fan-out events and
// failed subscriber deliveries are all counted here instead of raised.
// -----------------------------------------------------------------------------

type Metrics struct {
	EventsTotal        *prometheus.CounterVec
	MalformedTotal     prometheus.Counter
	ReconnectsTotal    prometheus.Counter
	QueueDropsTotal    *prometheus.CounterVec
	LateEventsTotal    prometheus.Counter
	WindowsClosedTotal prometheus.Counter
	AlertsTotal        *prometheus.CounterVec
	DeliveriesTotal    prometheus.Counter
	DeliveryFailures   prometheus.Counter
	Subscribers        prometheus.Gauge
}

// -----------------------------------------------------------------------------

// NewMetrics creates and registers all Prometheus metrics on reg. Passing a
// fresh registry keeps tests isolated; main uses the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crypto_feed_events_total",
			Help: "Normalized events produced by the feed client, by type",
		}, []string{"type"}),

		MalformedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crypto_feed_malformed_total",
			Help: "Inbound messages dropped because they failed to parse",
		}),

		ReconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crypto_feed_reconnects_total",
			Help: "Upstream reconnect attempts",
		}),

		QueueDropsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crypto_dispatch_drops_total",
			Help: "Events discarded by the drop-oldest policy, by consumer",
		}, []string{"consumer"}),

		LateEventsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crypto_aggregator_late_events_total",
			Help: "Ticks dropped because their window already closed",
		}),

		WindowsClosedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crypto_aggregator_windows_closed_total",
			Help: "Windows closed and emitted to storage",
		}),

		AlertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crypto_alerts_total",
			Help: "Alerts emitted, by type and severity",
		}, []string{"type", "severity"}),

		DeliveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "crypto_hub_deliveries_total",
			Help: "Frames delivered to subscribers",
		}),

		DeliveryFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "crypto_hub_delivery_failures_total",
			Help: "Subscriber sends that failed and led to removal",
		}),

		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "crypto_hub_subscribers",
			Help: "Currently connected subscribers",
		}),
	}
}

// -----------------------------------------------------------------------------

// NewTestMetrics returns metrics registered on a throwaway registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
