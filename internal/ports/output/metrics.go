package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncTransformCount increments the transformation counter.
	IncTransformCount(sourceSRID, targetSRID int, success bool)

	// ObserveTransformDuration records how long a request took.
	ObserveTransformDuration(sourceSRID, targetSRID int, duration time.Duration)

	// AddPointsTransformed counts transformed points.
	AddPointsTransformed(count int)

	// IncCacheLookup counts pipeline cache hits and misses.
	IncCacheLookup(hit bool)

	// SetCatalogsLoaded sets the number of loaded catalogs.
	SetCatalogsLoaded(count int)

	// SetCatalogsReady sets the number of ready catalogs.
	SetCatalogsReady(count int)

	// SetDefinitionsIndexed sets the number of SRIDs that resolve from catalogs.
	SetDefinitionsIndexed(count int)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncTransformCount implements MetricsCollector.
func (n *NoOpMetrics) IncTransformCount(_, _ int, _ bool) {}

// ObserveTransformDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveTransformDuration(_, _ int, _ time.Duration) {}

// AddPointsTransformed implements MetricsCollector.
func (n *NoOpMetrics) AddPointsTransformed(_ int) {}

// IncCacheLookup implements MetricsCollector.
func (n *NoOpMetrics) IncCacheLookup(_ bool) {}

// SetCatalogsLoaded implements MetricsCollector.
func (n *NoOpMetrics) SetCatalogsLoaded(_ int) {}

// SetCatalogsReady implements MetricsCollector.
func (n *NoOpMetrics) SetCatalogsReady(_ int) {}

// SetDefinitionsIndexed implements MetricsCollector.
func (n *NoOpMetrics) SetDefinitionsIndexed(_ int) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
