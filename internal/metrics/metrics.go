package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	admissions    *prometheus.CounterVec
	releases      *prometheus.CounterVec
	billedCents   prometheus.Counter
	notifications *prometheus.CounterVec
	droppedEvents prometheus.Counter
	registrySyncs *prometheus.CounterVec
	apiRequests   *prometheus.CounterVec
	apiLatency    *prometheus.HistogramVec
}

// New creates the collectors and registers them on a private registry together with
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_admissions_total",
			Help: "Admission attempts by result.",
		}, []string{"result"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_releases_total",
			Help: "Release attempts by result.",
		}, []string{"result"}),
		billedCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_billed_cents_total",
			Help: "Sum of all fees charged at exit, in cents.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_notifications_total",
			Help: "Notification deliveries by sender and result.",
		}, []string{"sender", "result"}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parking_notifications_dropped_total",
			Help: "Notification events dropped because the queue was full.",
		}),
		registrySyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_registry_syncs_total",
			Help: "Facility registry sync runs by result.",
		}, []string{"result"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parking_api_requests_total",
			Help: "API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parking_api_request_duration_seconds",
			Help:    "API request latency in seconds by method and route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.admissions,
		m.releases,
		m.billedCents,
		m.notifications,
		m.droppedEvents,
		m.registrySyncs,
		m.apiRequests,
		m.apiLatency,
	)
	return m
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAdmission(result string) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRelease(result string, billedCents int64) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(result).Inc()
	if billedCents > 0 {
		m.billedCents.Add(float64(billedCents))
	}
}

func (m *Metrics) ObserveNotification(sender string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(sender, result).Inc()
}

func (m *Metrics) IncDroppedEvent() {
	if m == nil {
		return
	}
	m.droppedEvents.Inc()
}

func (m *Metrics) ObserveRegistrySync(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.registrySyncs.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}
