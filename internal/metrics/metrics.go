// Package metrics exposes Prometheus telemetry for the MeetPoint API and
// the webhook dispatch subsystem. All collectors live on a caller-supplied
// registry so tests can assert on them in isolation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"meetpoint/internal/types"
)

// Metrics holds every collector the platform records. It implements the
// webhooks.DispatchRecorder interface and the API chassis request recorder.
type Metrics struct {
	registry *prometheus.Registry

	deliveriesTotal  *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	dispatchFanout   prometheus.Histogram

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		deliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetpoint_webhook_deliveries_total",
			Help: "Webhook delivery attempts by trigger event and result.",
		}, []string{"trigger", "result"}),
		deliveryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meetpoint_webhook_delivery_duration_seconds",
			Help:    "Wall time of one subscriber delivery pipeline.",
			Buckets: prometheus.DefBuckets,
		}, []string{"trigger"}),
		dispatchFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meetpoint_webhook_dispatch_fanout",
			Help:    "Number of subscribers resolved per dispatch.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetpoint_api_requests_total",
			Help: "API requests by method, route, and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meetpoint_api_request_duration_seconds",
			Help:    "API request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	registry.MustRegister(
		m.deliveriesTotal,
		m.deliveryDuration,
		m.dispatchFanout,
		m.requestsTotal,
		m.requestDuration,
	)

	return m
}

// RecordFanout implements webhooks.DispatchRecorder.
func (m *Metrics) RecordFanout(trigger types.TriggerEvent, subscribers int) {
	m.dispatchFanout.Observe(float64(subscribers))
}

// RecordDelivery implements webhooks.DispatchRecorder.
func (m *Metrics) RecordDelivery(trigger types.TriggerEvent, ok bool, elapsed time.Duration) {
	result := "failed"
	if ok {
		result = "success"
	}
	m.deliveriesTotal.WithLabelValues(string(trigger), result).Inc()
	m.deliveryDuration.WithLabelValues(string(trigger)).Observe(elapsed.Seconds())
}

// RecordRequest records one completed API request.
func (m *Metrics) RecordRequest(method, route, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler returns the /metrics scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gather exposes the underlying registry's gather function for tests.
func (m *Metrics) Gather() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}
