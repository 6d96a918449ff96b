package domain

import (
	"strings"
	"time"
)

// CatalogFormat identifies how a catalog file stores its definitions.
type CatalogFormat string

// Supported catalog formats.
const (
	FormatGeoPackage CatalogFormat = "geopackage" // gpkg_spatial_ref_sys
	FormatSpatiaLite CatalogFormat = "spatialite" // spatial_ref_sys
	FormatYAML       CatalogFormat = "yaml"
)

// CatalogFormatForPath derives the catalog format from a file extension.
func CatalogFormatForPath(path string) (CatalogFormat, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gpkg"):
		return FormatGeoPackage, true
	case strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".db"):
		return FormatSpatiaLite, true
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML, true
	}
	return "", false
}

// Catalog is a registered file of coordinate system definitions.
type Catalog struct {
	ID          string          // Unique identifier (derived from filename)
	Name        string          // Display name
	Path        string          // File path
	Format      CatalogFormat   // Storage format
	Size        int64           // File size in bytes
	Definitions int             // Definitions parsed successfully
	Skipped     int             // Definitions that could not be parsed
	Metadata    CatalogMetadata // Catalog metadata
	LoadedAt    time.Time       // Load timestamp
}

// CatalogMetadata contains descriptive catalog metadata.
type CatalogMetadata struct {
	Title       string   // Title
	Description string   // Description
	Version     string   // Version string
	Keywords    []string // Keywords/Tags
}

// HasKeyword checks if a keyword is present.
func (m *CatalogMetadata) HasKeyword(keyword string) bool {
	for _, k := range m.Keywords {
		if k == keyword {
			return true
		}
	}
	return false
}

// CatalogStatus represents the status of a catalog.
type CatalogStatus string

const (
	StatusLoading   CatalogStatus = "loading"
	StatusReady     CatalogStatus = "ready"
	StatusError     CatalogStatus = "error"
	StatusUnloading CatalogStatus = "unloading"
)

// Definition is one coordinate system of a catalog.
type Definition struct {
	SRID        int              // Spatial Reference ID used for lookups
	Name        string           // Display name
	Authority   string           // Defining organisation, e.g. EPSG
	Code        int              // Code within the authority
	WKT         string           // Source text
	Description string           // Optional description
	Catalog     string           // Owning catalog ID, empty for built-in systems
	System      CoordinateSystem // Parsed system
}

// Kind returns the variant of the parsed system.
func (d Definition) Kind() CSKind {
	if d.System == nil {
		return 0
	}
	return d.System.Kind()
}
