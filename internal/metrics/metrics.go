package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlefetcher_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlefetcher_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	tleFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlefetcher_tle_fetch_total",
			Help: "TLE source fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)

	tleDatasetSatellites = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tlefetcher_tle_dataset_satellites",
			Help: "Number of element sets in the current dataset.",
		},
	)

	tleDatasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tlefetcher_tle_dataset_age_seconds",
			Help: "Age of the current dataset in seconds.",
		},
	)

	aggregationObjects = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tlefetcher_aggregation_objects",
			Help:    "Objects per batch visibility search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	aggregationPassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tlefetcher_aggregation_passes_total",
			Help: "Passes found across all batch visibility searches.",
		},
	)

	aggregationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tlefetcher_aggregation_failures_total",
			Help: "Per-object failures across all batch visibility searches.",
		},
	)

	snapshotDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tlefetcher_snapshot_duration_seconds",
			Help:    "Catalog snapshot propagation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	snapshotObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlefetcher_snapshot_objects_total",
			Help: "Objects propagated in catalog snapshots by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		tleFetchTotal,
		tleDatasetSatellites,
		tleDatasetAgeSeconds,
		aggregationObjects,
		aggregationPassesTotal,
		aggregationFailuresTotal,
		snapshotDurationSeconds,
		snapshotObjectsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordFetch counts a TLE source fetch attempt. outcome is "ok" or "error".
func RecordFetch(outcome string) {
	tleFetchTotal.WithLabelValues(outcome).Inc()
}

// SetDatasetCount updates the element-set count gauge.
func SetDatasetCount(n int) {
	tleDatasetSatellites.Set(float64(n))
}

// SetDatasetAge updates the dataset age gauge.
func SetDatasetAge(seconds float64) {
	tleDatasetAgeSeconds.Set(seconds)
}

// RecordAggregation records the shape of one batch visibility search.
func RecordAggregation(objects, passes, failures int) {
	aggregationObjects.Observe(float64(objects))
	aggregationPassesTotal.Add(float64(passes))
	aggregationFailuresTotal.Add(float64(failures))
}

// RecordSnapshot records one catalog snapshot propagation.
func RecordSnapshot(duration time.Duration, success, errors int) {
	snapshotDurationSeconds.Observe(duration.Seconds())
	snapshotObjectsTotal.WithLabelValues("ok").Add(float64(success))
	snapshotObjectsTotal.WithLabelValues("error").Add(float64(errors))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// knownRoutes are the exact paths served by the API; anything else is
// collapsed into a single "other" label so scanners and bots cannot inflate
// metric cardinality.
var knownRoutes = map[string]bool{
	"/healthz":             true,
	"/readyz":              true,
	"/metrics":             true,
	"/api/v1/passes":       true,
	"/api/v1/positions":    true,
	"/api/v1/tle/metadata": true,
}

// normalizeRoute maps a request path to a bounded set of metric labels.
// Parameterized propagate paths collapse to one label per route, not one per
// NORAD ID.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/propagate/") {
		return "/api/v1/propagate/{norad_id}"
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
