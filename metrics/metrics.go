package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CrawlMetrics holds the Prometheus instruments for one crawler process.
type CrawlMetrics struct {
	EventsFetched     *prometheus.CounterVec
	EventsAdmitted    *prometheus.CounterVec
	Duplicates        *prometheus.CounterVec
	FetchFailures     *prometheus.CounterVec
	NormalizeFailures *prometheus.CounterVec
	LastRunTimestamp  prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers the crawl metrics on a fresh registry.
func New() *CrawlMetrics {
	reg := prometheus.NewRegistry()
	m := &CrawlMetrics{registry: reg}

	m.EventsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "events_crawler",
		Name:      "raw_events_fetched_total",
		Help:      "Raw events returned by each source adapter",
	}, []string{"source"})
	m.EventsAdmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "events_crawler",
		Name:      "events_admitted_total",
		Help:      "Events admitted as drafts after dedup",
	}, []string{"source"})
	m.Duplicates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "events_crawler",
		Name:      "duplicates_dropped_total",
		Help:      "Events dropped because their hash was already stored",
	}, []string{"source"})
	m.FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "events_crawler",
		Name:      "fetch_failures_total",
		Help:      "Adapter-level fetch failures",
	}, []string{"source"})
	m.NormalizeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "events_crawler",
		Name:      "normalize_failures_total",
		Help:      "Per-item normalization failures",
	}, []string{"source"})
	m.LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "events_crawler",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the last completed crawl run",
	})

	reg.MustRegister(
		m.EventsFetched,
		m.EventsAdmitted,
		m.Duplicates,
		m.FetchFailures,
		m.NormalizeFailures,
		m.LastRunTimestamp,
	)
	return m
}

// Serve exposes /metrics on addr in a background goroutine.
func (m *CrawlMetrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
