package application

import (
	"context"

	"github.com/jobrunner/meridian/internal/domain"
	"github.com/jobrunner/meridian/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	registry *CatalogRegistry
}

// NewHealthService creates a new health service.
func NewHealthService(registry *CatalogRegistry) *HealthService {
	return &HealthService{
		registry: registry,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true
}

// IsReady returns true once no catalog is still loading or unloading. Built-in
// systems are always available, so an empty registry is ready.
func (s *HealthService) IsReady(ctx context.Context) bool {
	for _, c := range s.GetCatalogHealth(ctx) {
		if c.Status == domain.StatusLoading || c.Status == domain.StatusUnloading {
			return false
		}
	}
	return true
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	loaded, ready, indexed := s.registry.counts()

	components := map[string]string{
		"storage":  "ok",
		"catalogs": "ok",
	}
	if ready < loaded {
		components["catalogs"] = "degraded"
	}

	return input.HealthDetails{
		Healthy:            s.IsHealthy(ctx),
		Ready:              s.IsReady(ctx),
		CatalogsLoaded:     loaded,
		CatalogsReady:      ready,
		DefinitionsIndexed: indexed,
		Components:         components,
	}
}

// CatalogHealth contains health info for a single catalog.
type CatalogHealth struct {
	ID     string
	Status domain.CatalogStatus
	Ready  bool
	Error  string
}

// GetCatalogHealth returns health info for all catalogs.
func (s *HealthService) GetCatalogHealth(_ context.Context) []CatalogHealth {
	s.registry.mu.RLock()
	defer s.registry.mu.RUnlock()

	health := make([]CatalogHealth, 0, len(s.registry.catalogs))
	for id, entry := range s.registry.catalogs {
		h := CatalogHealth{
			ID:     id,
			Status: entry.Status,
			Ready:  entry.Status == domain.StatusReady,
		}
		if entry.Error != nil {
			h.Error = entry.Error.Error()
		}
		health = append(health, h)
	}
	return health
}
