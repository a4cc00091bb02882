package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Read outcomes recorded by metrics.
const (
	outcomeOK       = "ok"
	outcomeLocked   = "locked"
	outcomeRejected = "rejected"
	outcomeNotFound = "not_found"
	outcomeExpired  = "expired"
)

// metrics holds the service's Prometheus collectors on a private registry.
type metrics struct {
	registry *prometheus.Registry

	pastesCreated  *prometheus.CounterVec
	pasteReads     *prometheus.CounterVec
	blobBytes      *prometheus.CounterVec
	rateLimited    *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	sweptEntries   prometheus.Counter
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &metrics{registry: reg}
	m.pastesCreated = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klistra",
		Name:      "pastes_created_total",
		Help:      "Pastes created, by protection.",
	}, []string{"protected"})
	m.pasteReads = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klistra",
		Name:      "paste_reads_total",
		Help:      "Paste reads, by outcome.",
	}, []string{"outcome"})
	m.blobBytes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klistra",
		Name:      "blob_bytes_total",
		Help:      "Encrypted blob bytes, by direction.",
	}, []string{"direction"})
	m.rateLimited = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "klistra",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by bucket.",
	}, []string{"bucket"})
	m.requestSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "klistra",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "code"})
	m.sweptEntries = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "klistra",
		Name:      "swept_entries_total",
		Help:      "Expired records and blobs removed by the janitor.",
	})

	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
