// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/jobrunner/meridian/internal/domain"
)

// TransformService defines the primary port for coordinate transformations.
type TransformService interface {
	// Transform moves every point of the request from the source to the target system.
	Transform(ctx context.Context, req domain.TransformRequest) (*domain.TransformResponse, error)

	// Describe returns the pipeline between two systems without transforming anything.
	Describe(ctx context.Context, sourceSRID, targetSRID int) (*domain.OperationSummary, error)
}

// CatalogRegistry defines the primary port for coordinate system lookup and catalog management.
type CatalogRegistry interface {
	// Lookup resolves an SRID to a coordinate system.
	Lookup(ctx context.Context, srid int) (domain.CoordinateSystem, error)

	// Definition returns the definition behind an SRID.
	Definition(ctx context.Context, srid int) (*domain.Definition, error)

	// ListDefinitions returns every known definition ordered by SRID.
	ListDefinitions(ctx context.Context) ([]domain.Definition, error)

	// ListCatalogs returns all registered catalogs.
	ListCatalogs(ctx context.Context) ([]domain.Catalog, error)

	// GetCatalog returns a specific catalog by ID.
	GetCatalog(ctx context.Context, id string) (*domain.Catalog, error)

	// GetCatalogStatus returns the status of a catalog.
	GetCatalogStatus(ctx context.Context, id string) (domain.CatalogStatus, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy            bool              // Overall health status
	Ready              bool              // Ready to accept requests
	CatalogsLoaded     int               // Number of loaded catalogs
	CatalogsReady      int               // Number of ready catalogs
	DefinitionsIndexed int               // Number of SRIDs that resolve
	Components         map[string]string // Component statuses
}
