// Package catalog reads coordinate system catalogs from GeoPackage,
// SpatiaLite and YAML files.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/meridian/internal/domain"
	"github.com/jobrunner/meridian/internal/wkt"
)

// Repository implements the CatalogRepository port. Definitions are parsed
// once when a catalog is opened and served from memory afterwards.
type Repository struct {
	mu          sync.RWMutex
	catalogs    map[string]*domain.Catalog
	definitions map[string][]domain.Definition
	logger      *slog.Logger
}

// NewRepository creates a new catalog repository.
func NewRepository(logger *slog.Logger) *Repository {
	return &Repository{
		catalogs:    make(map[string]*domain.Catalog),
		definitions: make(map[string][]domain.Definition),
		logger:      logger,
	}
}

// record is one raw catalog entry before its WKT is parsed.
type record struct {
	SRID        int
	Name        string
	Authority   string
	Code        int
	WKT         string
	Description string
}

// Open reads a catalog file. Opening a path again re-reads it.
func (r *Repository) Open(ctx context.Context, path string) (*domain.Catalog, error) {
	format, ok := domain.CatalogFormatForPath(path)
	if !ok {
		return nil, &domain.UnsupportedOperationError{
			Operation: "open catalog",
			Message:   fmt.Sprintf("unknown catalog format for %s", filepath.Base(path)),
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}

	id := DeriveCatalogID(path)
	cat := &domain.Catalog{
		ID:     id,
		Name:   id,
		Path:   path,
		Format: format,
		Size:   info.Size(),
	}

	var records []record
	switch format {
	case domain.FormatYAML:
		records, err = readYAML(path, cat)
	default:
		records, err = readSQLite(ctx, path, cat)
	}
	if err != nil {
		return nil, &domain.CatalogError{CatalogID: id, Err: err}
	}

	defs := r.parse(id, records, cat)
	cat.Definitions = len(defs)
	cat.LoadedAt = time.Now()

	r.mu.Lock()
	r.catalogs[id] = cat
	r.definitions[id] = defs
	r.mu.Unlock()

	out := *cat
	return &out, nil
}

// parse turns records into definitions. Records whose WKT does not parse are
// logged and counted in cat.Skipped.
func (r *Repository) parse(catalogID string, records []record, cat *domain.Catalog) []domain.Definition {
	defs := make([]domain.Definition, 0, len(records))
	for _, rec := range records {
		cs, err := wkt.Parse(rec.WKT)
		if err != nil {
			cat.Skipped++
			r.logger.Warn("skipping catalog definition",
				"catalog", catalogID,
				"srid", rec.SRID,
				"error", err,
			)
			continue
		}

		d := domain.Definition{
			SRID:        rec.SRID,
			Name:        rec.Name,
			Authority:   rec.Authority,
			Code:        rec.Code,
			WKT:         rec.WKT,
			Description: rec.Description,
			Catalog:     catalogID,
			System:      cs,
		}
		if d.Name == "" {
			d.Name = cs.Metadata().Name
		}
		if d.Authority == "" {
			d.Authority = cs.Metadata().Authority
			d.Code = int(cs.Metadata().AuthorityCode)
		}
		defs = append(defs, d)
	}
	return defs
}

// Close releases a catalog.
func (r *Repository) Close(_ context.Context, catalogID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.catalogs, catalogID)
	delete(r.definitions, catalogID)
	return nil
}

// Definitions returns the parsed definitions of an open catalog.
func (r *Repository) Definitions(_ context.Context, catalogID string) ([]domain.Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs, ok := r.definitions[catalogID]
	if !ok {
		return nil, domain.ErrCatalogNotFound
	}
	return append([]domain.Definition(nil), defs...), nil
}

// DeriveCatalogID derives a catalog ID from the file path.
// It extracts the filename without extension as the catalog identifier.
func DeriveCatalogID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
