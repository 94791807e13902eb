package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/hookguard/internal/signature"
)

// Metrics holds the Prometheus collectors for the webhook gate.
type Metrics struct {
	registry *prometheus.Registry

	VerificationsTotal *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	DeliveriesRecorded *prometheus.CounterVec
	RecordErrorsTotal  prometheus.Counter
}

// New creates the collectors and registers them on registry. A nil registry
// gets a fresh one.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		VerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookguard_verifications_total",
				Help: "Total number of webhook signature verifications",
			},
			[]string{"endpoint", "payload", "result", "reason"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hookguard_request_duration_seconds",
				Help:    "Webhook request handling duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		DeliveriesRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hookguard_deliveries_recorded_total",
				Help: "Total number of deliveries written to the delivery log",
			},
			[]string{"status"},
		),
		RecordErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hookguard_delivery_record_errors_total",
				Help: "Total number of failures writing to the delivery log",
			},
		),
	}

	registry.MustRegister(
		m.VerificationsTotal,
		m.RequestDuration,
		m.DeliveriesRecorded,
		m.RecordErrorsTotal,
	)
	return m
}

// ObserveVerification counts one validation outcome for endpoint.
func (m *Metrics) ObserveVerification(endpoint string, res signature.Result) {
	result := "rejected"
	if res.Valid {
		result = "accepted"
	}
	m.VerificationsTotal.WithLabelValues(endpoint, res.Payload.String(), result, res.Reason.String()).Inc()
}

// ObserveDuration records how long a request to endpoint took.
func (m *Metrics) ObserveDuration(endpoint string, d time.Duration) {
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveRecord counts a delivery log write, or a failed one when err is set.
func (m *Metrics) ObserveRecord(status string, err error) {
	if err != nil {
		m.RecordErrorsTotal.Inc()
		return
	}
	m.DeliveriesRecorded.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
