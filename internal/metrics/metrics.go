package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shorturl"

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	shortens        *prometheus.CounterVec
	resolves        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inflight        prometheus.Gauge
	orphans         *prometheus.CounterVec
	purged          prometheus.Counter
}

// New creates the collectors and registers them with reg.
// Registering twice on the same registry panics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		shortens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shorten_total",
			Help:      "Shorten requests by outcome.",
		}, []string{"outcome"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_total",
			Help:      "Lookup and redirect requests by outcome.",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distributions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_records_total",
			Help:      "Orphaned provisional record events by handling result.",
		}, []string{"result"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisional_records_purged_total",
			Help:      "Provisional records removed by the periodic sweep.",
		}),
	}

	reg.MustRegister(
		m.shortens,
		m.resolves,
		m.requestDuration,
		m.inflight,
		m.orphans,
		m.purged,
	)

	return m
}

func (m *Metrics) RecordShorten(outcome string) {
	m.shortens.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordResolve(outcome string) {
	m.resolves.WithLabelValues(outcome).Inc()
}

// RequestStarted marks a request in flight and returns the function that completes it.
func (m *Metrics) RequestStarted() func(method, route string, status int) {
	start := time.Now()

	m.inflight.Inc()

	return func(method, route string, status int) {
		m.inflight.Dec()
		m.requestDuration.
			WithLabelValues(method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordOrphan(result string) {
	m.orphans.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordPurged(n int64) {
	m.purged.Add(float64(n))
}
