package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	CheckoutRequests     *prometheus.CounterVec   // checkout_requests_total{outcome}
	CheckoutDuration     *prometheus.HistogramVec // checkout_duration_seconds{outcome}
	Notifications        *prometheus.CounterVec   // notifications_total{channel,outcome}
	InvoicesIssued       prometheus.Counter
	EventPublishFailures *prometheus.CounterVec // order_event_publish_failed_total{event}
}

// New creates the collectors and registers them on reg.
// Passing prometheus.NewRegistry() keeps tests isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CheckoutRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_requests_total",
				Help: "Checkout attempts by outcome.",
			},
			[]string{"outcome"},
		),
		CheckoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_duration_seconds",
				Help:    "Time from request receipt to persisted order or failure.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification attempts by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		InvoicesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoices_issued_total",
			Help: "Invoices created with a freshly issued number.",
		}),
		EventPublishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_event_publish_failed_total",
				Help: "Count of order-related event publish failures.",
			},
			[]string{"event"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.CheckoutRequests, m.CheckoutDuration, m.Notifications, m.InvoicesIssued, m.EventPublishFailures)
	}
	return m
}

// Nop returns unregistered collectors, for components built without a registry.
func Nop() *Metrics { return New(nil) }
