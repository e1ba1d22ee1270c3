package pmtiles

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is optional internal instrumentation for an Archive: cache
// hit/miss counts, fetch count and latency by kind, and leaf-recursion
// depth observed while resolving get_tile. It never stands up an HTTP
// /metrics endpoint — that belongs to the service layer — it only
// exposes Collector() so a caller's own gatherer can scrape it.
type Metrics struct {
	registry *prometheus.Registry

	cacheRequests  *prometheus.CounterVec
	fetchRequests  *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	leafDepth      prometheus.Histogram
	cacheSetErrors prometheus.Counter
}

// Fetch kinds observed at the suspension points in §5.2.
const (
	fetchKindPrefix   = "prefix"
	fetchKindLeaf     = "leaf"
	fetchKindTile     = "tile"
	fetchKindMetadata = "metadata"
)

// NewMetrics builds a Metrics instance registered against its own private
// prometheus.Registry, so constructing more than one Archive with its own
// Metrics never collides on metric names the way registering against
// prometheus.DefaultRegisterer twice would.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmtiles",
			Subsystem: "core",
			Name:      "cache_requests_total",
			Help:      "Cache lookups performed by the archive access state machine, by kind and status (hit/miss).",
		}, []string{"kind", "status"}),
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pmtiles",
			Subsystem: "core",
			Name:      "fetch_requests_total",
			Help:      "Blob fetches performed, by kind and status (ok/error).",
		}, []string{"kind", "status"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pmtiles",
			Subsystem: "core",
			Name:      "fetch_duration_seconds",
			Help:      "Blob fetch latency by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		leafDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pmtiles",
			Subsystem: "core",
			Name:      "leaf_directory_depth",
			Help:      "Number of leaf-directory hops traversed to resolve a tile.",
			Buckets:   []float64{0, 1, 2, 3, 4},
		}),
		cacheSetErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pmtiles",
			Subsystem: "core",
			Name:      "cache_set_errors_total",
			Help:      "Non-fatal cache Set failures, per §7's CacheSetFailed handling.",
		}),
	}

	registry.MustRegister(
		m.cacheRequests,
		m.fetchRequests,
		m.fetchDuration,
		m.leafDepth,
		m.cacheSetErrors,
	)

	return m
}

// Collector exposes the underlying registry as a prometheus.Gatherer, to
// be merged into the host service's gathering (e.g. via
// prometheus.Gatherers) or scraped directly, without this package ever
// serving HTTP itself.
func (m *Metrics) Collector() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) observeCache(kind string, hit bool) {
	if m == nil {
		return
	}
	status := "miss"
	if hit {
		status = "hit"
	}
	m.cacheRequests.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) observeCacheSetFailure() {
	if m == nil {
		return
	}
	m.cacheSetErrors.Inc()
}

func (m *Metrics) observeLeafDepth(depth int) {
	if m == nil {
		return
	}
	m.leafDepth.Observe(float64(depth))
}

// trackFetch starts a latency/outcome observation for a fetch of the
// given kind; call the returned func with the error the fetch produced
// (nil on success).
func (m *Metrics) trackFetch(kind string) func(err error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.fetchRequests.WithLabelValues(kind, status).Inc()
		m.fetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
