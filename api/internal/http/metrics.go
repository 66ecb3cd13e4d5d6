package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
)

type routerMetrics struct {
	requestTotal    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	rateLimitHits   *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
	feedConnections *prometheus.GaugeVec
}

func newRouterMetrics(reg prometheus.Registerer) *routerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &routerMetrics{
		requestTotal: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estate",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})),
		requestLatency: registerCollector(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "estate",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})),
		rateLimitHits: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estate",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})),
		authEvents: registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estate",
			Subsystem: "api",
			Name:      "auth_events_total",
			Help:      "Authentication attempts by event and outcome",
		}, []string{"event", "outcome"})),
		feedConnections: registerCollector(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "estate",
			Subsystem: "api",
			Name:      "feed_connections",
			Help:      "Open agent feed connections by transport",
		}, []string{"transport"})),
	}
}

// registerCollector registers c, reusing an identical collector registered earlier.
func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *routerMetrics) request(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

func (m *routerMetrics) rateLimitHit(route, key string) {
	if m == nil {
		return
	}
	m.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (m *routerMetrics) authEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.With(prometheus.Labels{"event": event, "outcome": outcome}).Inc()
}

func (m *routerMetrics) feedOpened(transport string) func() {
	if m == nil {
		return func() {}
	}
	gauge := m.feedConnections.WithLabelValues(transport)
	gauge.Inc()
	return gauge.Dec
}
