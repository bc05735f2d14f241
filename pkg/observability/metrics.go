package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds the Prometheus metrics for the API server. It owns its
// registry so tests and Lambda cold starts never fight over the default
// global one.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AnalysesGenerated *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	AnalysesDeleted   prometheus.Counter

	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	EphemerisRequests *prometheus.CounterVec

	EventsPublished prometheus.Counter
	EventsFailed    prometheus.Counter

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector returns the process-wide metrics collector, creating it on
// first call. Repeat calls return the same instance: registering the same
// metric names twice panics.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	analysesGenerated := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_generated_total",
			Help:      "Total number of relationship analyses computed",
		},
		[]string{"mode", "status"},
	)

	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Relationship analysis pipeline duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"mode"},
	)

	analysesDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_deleted_total",
			Help:      "Total number of stored analyses deleted",
		},
	)

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries dispatched through the query bus",
		},
		[]string{"query", "status"},
	)

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query handler duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	ephemerisRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ephemeris_requests_total",
			Help:      "Calls to the external ephemeris provider",
		},
		[]string{"outcome"},
	)

	eventsPublished := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events delivered to the event bus",
		},
	)

	eventsFailed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Domain events that could not be delivered",
		},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Read-side cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Read-side cache misses",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		analysesGenerated,
		analysisDuration,
		analysesDeleted,
		queries,
		queryDuration,
		ephemerisRequests,
		eventsPublished,
		eventsFailed,
		cacheHits,
		cacheMisses,
	)

	globalCollector = &Collector{
		registry:          registry,
		HTTPRequests:      httpRequests,
		HTTPDuration:      httpDuration,
		AnalysesGenerated: analysesGenerated,
		AnalysisDuration:  analysisDuration,
		AnalysesDeleted:   analysesDeleted,
		Queries:           queries,
		QueryDuration:     queryDuration,
		EphemerisRequests: ephemerisRequests,
		EventsPublished:   eventsPublished,
		EventsFailed:      eventsFailed,
		CacheHits:         cacheHits,
		CacheMisses:       cacheMisses,
	}
	return globalCollector
}

// ResetForTesting drops the global collector so tests can rebuild it.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// ObserveHTTP records one handled request. Safe on a nil collector so
// callers never guard for disabled metrics.
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAnalysis records one analysis computation. mode distinguishes
// stored runs from previews; err == nil counts as success.
func (c *Collector) ObserveAnalysis(mode string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.AnalysesGenerated.WithLabelValues(mode, status).Inc()
	c.AnalysisDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveDeletion records removed analyses.
func (c *Collector) ObserveDeletion(count int) {
	if c == nil || count <= 0 {
		return
	}
	c.AnalysesDeleted.Add(float64(count))
}

// Handler serves this collector's registry, mounted at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
