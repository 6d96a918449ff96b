package output

import (
	"context"

	"github.com/jobrunner/meridian/internal/domain"
)

// CatalogRepository defines the secondary port for reading coordinate system catalogs.
type CatalogRepository interface {
	// Open reads a catalog file and returns its metadata.
	Open(ctx context.Context, path string) (*domain.Catalog, error)

	// Close releases a catalog.
	Close(ctx context.Context, catalogID string) error

	// Definitions returns the parsed definitions of an open catalog.
	Definitions(ctx context.Context, catalogID string) ([]domain.Definition, error)
}
