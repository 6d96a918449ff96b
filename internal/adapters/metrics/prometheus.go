// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	registry prometheus.Gatherer

	transformCounter    *prometheus.CounterVec
	transformDuration   *prometheus.HistogramVec
	pointsTransformed   prometheus.Counter
	cacheLookups        *prometheus.CounterVec
	catalogsLoaded      prometheus.Gauge
	catalogsReady       prometheus.Gauge
	definitionsIndexed  prometheus.Gauge
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector registered with the default Prometheus registry.
func NewCollector(namespace string) *Collector {
	return NewCollectorWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewCollectorWithRegistry creates a collector registered with reg and served from gatherer.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Collector {
	if namespace == "" {
		namespace = "meridian"
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: gatherer,

		transformCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transforms_total",
				Help:      "Total number of transformation requests",
			},
			[]string{"source_srid", "target_srid", "status"},
		),

		transformDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transform_duration_seconds",
				Help:      "Transformation request duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"source_srid", "target_srid"},
		),

		pointsTransformed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "points_transformed_total",
				Help:      "Total number of transformed points",
			},
		),

		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transform_cache_lookups_total",
				Help:      "Transformation cache lookups by result",
			},
			[]string{"result"},
		),

		catalogsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalogs_loaded",
				Help:      "Number of loaded catalogs",
			},
		),

		catalogsReady: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalogs_ready",
				Help:      "Number of ready catalogs",
			},
		),

		definitionsIndexed: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "definitions_indexed",
				Help:      "Number of SRIDs resolved from catalogs",
			},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// IncTransformCount increments the transformation counter.
func (c *Collector) IncTransformCount(sourceSRID, targetSRID int, success bool) {
	c.transformCounter.WithLabelValues(strconv.Itoa(sourceSRID), strconv.Itoa(targetSRID), outcome(success)).Inc()
}

// ObserveTransformDuration records transformation duration.
func (c *Collector) ObserveTransformDuration(sourceSRID, targetSRID int, duration time.Duration) {
	c.transformDuration.WithLabelValues(strconv.Itoa(sourceSRID), strconv.Itoa(targetSRID)).Observe(duration.Seconds())
}

// AddPointsTransformed counts transformed points.
func (c *Collector) AddPointsTransformed(count int) {
	if count > 0 {
		c.pointsTransformed.Add(float64(count))
	}
}

// IncCacheLookup counts cache hits and misses.
func (c *Collector) IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// SetCatalogsLoaded sets the number of loaded catalogs.
func (c *Collector) SetCatalogsLoaded(count int) {
	c.catalogsLoaded.Set(float64(count))
}

// SetCatalogsReady sets the number of ready catalogs.
func (c *Collector) SetCatalogsReady(count int) {
	c.catalogsReady.Set(float64(count))
}

// SetDefinitionsIndexed sets the number of indexed catalog definitions.
func (c *Collector) SetDefinitionsIndexed(count int) {
	c.definitionsIndexed.Set(float64(count))
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, outcome(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler returns the Prometheus HTTP handler for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := routePath(r)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// routePath returns the matched route template, e.g. /api/v1/crs/{srid},
// so that path variables do not create new label values.
func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath bounds the label for requests that matched no route.
func normalizePath(path string) string {
	switch {
	case len(path) > 20:
		return path[:20] + "..."
	default:
		return path
	}
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
