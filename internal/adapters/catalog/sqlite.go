package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Registers the sqlite3 database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/jobrunner/meridian/internal/domain"
)

// ErrNoSpatialRefSys is returned for databases without a spatial reference table.
var ErrNoSpatialRefSys = errors.New("neither gpkg_spatial_ref_sys nor spatial_ref_sys found")

const (
	geoPackageQuery = `
		SELECT srs_id, srs_name, COALESCE(organization, ''),
			COALESCE(organization_coordsys_id, 0), definition, COALESCE(description, '')
		FROM gpkg_spatial_ref_sys
		WHERE srs_id > 0
		ORDER BY srs_id`

	spatialRefSysQuery = `
		SELECT srid, '', COALESCE(auth_name, ''), COALESCE(auth_srid, 0), srtext, ''
		FROM spatial_ref_sys
		WHERE srid > 0
		ORDER BY srid`
)

// readSQLite reads a GeoPackage or a SpatiaLite/PostGIS style database.
// The GeoPackage table is preferred when both are present.
func readSQLite(ctx context.Context, path string, cat *domain.Catalog) ([]record, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "open", Key: path, Err: err}
	}
	defer func() { _ = db.Close() }()

	var query string
	switch {
	case hasTable(ctx, db, "gpkg_spatial_ref_sys"):
		query = geoPackageQuery
		cat.Format = domain.FormatGeoPackage
	case hasTable(ctx, db, "spatial_ref_sys"):
		query = spatialRefSysQuery
		cat.Format = domain.FormatSpatiaLite
	default:
		return nil, ErrNoSpatialRefSys
	}

	readMetadata(ctx, db, cat)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reading spatial reference systems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []record
	for rows.Next() {
		var rec record
		if err := rows.Scan(&rec.SRID, &rec.Name, &rec.Authority, &rec.Code, &rec.WKT, &rec.Description); err != nil {
			return nil, fmt.Errorf("scanning spatial reference system: %w", err)
		}
		if strings.EqualFold(strings.TrimSpace(rec.WKT), "undefined") {
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// openDB opens the database read-only.
func openDB(ctx context.Context, path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func hasTable(ctx context.Context, db *sql.DB, name string) bool {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&count)
	return err == nil && count > 0
}

// readMetadata copies the first gpkg_metadata entry into the catalog
// description when the table exists.
func readMetadata(ctx context.Context, db *sql.DB, cat *domain.Catalog) {
	if !hasTable(ctx, db, "gpkg_metadata") {
		return
	}

	var metadata string
	if err := db.QueryRowContext(ctx, `SELECT metadata FROM gpkg_metadata LIMIT 1`).Scan(&metadata); err != nil {
		return
	}
	cat.Metadata.Description = metadata
}
