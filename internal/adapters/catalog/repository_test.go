package catalog

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/meridian/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func utmWKT(t *testing.T, zone int) string {
	t.Helper()
	cs, err := domain.WGS84UTM(zone, true)
	if err != nil {
		t.Fatal(err)
	}
	return cs.WKT()
}

// createDB writes a sqlite database with the given statements.
func createDB(t *testing.T, name string, statements ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("opening %s: %v", path, err)
	}
	defer func() { _ = db.Close() }()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("executing %q: %v", stmt, err)
		}
	}
	return path
}

func createGeoPackage(t *testing.T, name string) string {
	t.Helper()
	path := createDB(t, name,
		`CREATE TABLE gpkg_spatial_ref_sys (
			srs_name TEXT NOT NULL,
			srs_id INTEGER PRIMARY KEY,
			organization TEXT NOT NULL,
			organization_coordsys_id INTEGER NOT NULL,
			definition TEXT NOT NULL,
			description TEXT)`,
		`CREATE TABLE gpkg_metadata (id INTEGER PRIMARY KEY, metadata TEXT)`,
		`INSERT INTO gpkg_metadata (metadata) VALUES ('test catalog')`,
	)

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	insert := `INSERT INTO gpkg_spatial_ref_sys VALUES (?, ?, ?, ?, ?, ?)`
	rows := []struct {
		name, org, wkt, desc string
		id, code             int
	}{
		{"Undefined cartesian SRS", "NONE", "undefined", "", -1, -1},
		{"Undefined geographic SRS", "NONE", "undefined", "", 0, 0},
		{"WGS 84", "EPSG", domain.WGS84().WKT(), "longitude/latitude", 4326, 4326},
		{"WGS 84 / UTM zone 32N", "EPSG", utmWKT(t, 32), "", 32632, 32632},
		{"broken", "EPSG", `GEOGCS["broken"`, "", 999999, 999999},
	}
	for _, r := range rows {
		if _, err := db.Exec(insert, r.name, r.id, r.org, r.code, r.wkt, r.desc); err != nil {
			t.Fatalf("inserting %s: %v", r.name, err)
		}
	}
	return path
}

func TestDeriveCatalogID(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"simple filename", "/data/epsg.gpkg", "epsg"},
		{"relative path", "data/local.yaml", "local"},
		{"multiple dots", "/data/epsg.v10.gpkg", "epsg.v10"},
		{"no extension", "/data/srs", "srs"},
		{"just extension", ".gpkg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveCatalogID(tt.path); got != tt.want {
				t.Errorf("DeriveCatalogID(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRepositoryOpenGeoPackage(t *testing.T) {
	path := createGeoPackage(t, "epsg.gpkg")
	repo := NewRepository(testLogger())
	ctx := context.Background()

	cat, err := repo.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if cat.ID != "epsg" {
		t.Errorf("expected ID epsg, got %s", cat.ID)
	}
	if cat.Format != domain.FormatGeoPackage {
		t.Errorf("expected format %s, got %s", domain.FormatGeoPackage, cat.Format)
	}
	if cat.Definitions != 2 {
		t.Errorf("expected 2 definitions, got %d", cat.Definitions)
	}
	if cat.Skipped != 1 {
		t.Errorf("expected 1 skipped definition, got %d", cat.Skipped)
	}
	if cat.Metadata.Description != "test catalog" {
		t.Errorf("expected metadata description, got %q", cat.Metadata.Description)
	}

	defs, err := repo.Definitions(ctx, "epsg")
	if err != nil {
		t.Fatalf("Definitions failed: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}

	utm := defs[1]
	if utm.SRID != 32632 || utm.Authority != "EPSG" || utm.Code != 32632 {
		t.Errorf("unexpected definition %d %s:%d", utm.SRID, utm.Authority, utm.Code)
	}
	if utm.Catalog != "epsg" {
		t.Errorf("expected catalog epsg, got %q", utm.Catalog)
	}
	if utm.Kind() != domain.KindProjected {
		t.Errorf("expected projected system, got %s", utm.Kind())
	}
	want, _ := domain.WGS84UTM(32, true)
	if !utm.System.EqualParams(want) {
		t.Error("expected parsed system to match WGS 84 / UTM zone 32N")
	}
	if defs[0].Description != "longitude/latitude" {
		t.Errorf("expected description to be kept, got %q", defs[0].Description)
	}
}

func TestRepositoryOpenSpatiaLite(t *testing.T) {
	path := createDB(t, "srs.sqlite",
		`CREATE TABLE spatial_ref_sys (srid INTEGER PRIMARY KEY, auth_name TEXT, auth_srid INTEGER, srtext TEXT)`,
		`INSERT INTO spatial_ref_sys VALUES (4978, 'EPSG', 4978, '`+domain.WGS84Geocentric().WKT()+`')`,
	)
	repo := NewRepository(testLogger())
	ctx := context.Background()

	cat, err := repo.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if cat.Format != domain.FormatSpatiaLite {
		t.Errorf("expected format %s, got %s", domain.FormatSpatiaLite, cat.Format)
	}

	defs, _ := repo.Definitions(ctx, cat.ID)
	if len(defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(defs))
	}
	if defs[0].Name != "WGS 84" {
		t.Errorf("expected name from WKT, got %q", defs[0].Name)
	}
	if defs[0].Kind() != domain.KindGeocentric {
		t.Errorf("expected geocentric, got %s", defs[0].Kind())
	}
}

func TestRepositoryOpenWithoutSpatialRefSys(t *testing.T) {
	path := createDB(t, "empty.db", `CREATE TABLE other (id INTEGER)`)
	repo := NewRepository(testLogger())

	_, err := repo.Open(context.Background(), path)
	if !errors.Is(err, ErrNoSpatialRefSys) {
		t.Fatalf("expected ErrNoSpatialRefSys, got %v", err)
	}
	var ce *domain.CatalogError
	if !errors.As(err, &ce) || ce.CatalogID != "empty" {
		t.Errorf("expected CatalogError for empty, got %v", err)
	}
}

func TestRepositoryOpenYAML(t *testing.T) {
	doc := `title: Local systems
version: "3"
keywords: [local, test]
definitions:
  - srid: 900001
    name: Local UTM
    authority: LOCAL
    code: 1
    wkt: '` + utmWKT(t, 33) + `'
  - srid: 900002
    wkt: 'PROJCS["no geogcs"]'
`
	path := filepath.Join(t.TempDir(), "local.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	repo := NewRepository(testLogger())
	ctx := context.Background()

	cat, err := repo.Open(ctx, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if cat.Name != "Local systems" {
		t.Errorf("expected title as name, got %q", cat.Name)
	}
	if !cat.Metadata.HasKeyword("local") || cat.Metadata.Version != "3" {
		t.Errorf("unexpected metadata %+v", cat.Metadata)
	}
	if cat.Definitions != 1 || cat.Skipped != 1 {
		t.Errorf("expected 1 definition and 1 skipped, got %d and %d", cat.Definitions, cat.Skipped)
	}

	defs, _ := repo.Definitions(ctx, "local")
	if len(defs) != 1 || defs[0].SRID != 900001 || defs[0].Authority != "LOCAL" {
		t.Errorf("unexpected definitions %+v", defs)
	}
}

func TestRepositoryOpenYAMLInvalidSRID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	if err := os.WriteFile(path, []byte("definitions:\n  - srid: 0\n    wkt: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := NewRepository(testLogger()).Open(context.Background(), path)
	if !errors.Is(err, domain.ErrInvalidSRID) {
		t.Errorf("expected ErrInvalidSRID, got %v", err)
	}
}

func TestRepositoryOpenErrors(t *testing.T) {
	repo := NewRepository(testLogger())
	ctx := context.Background()

	if _, err := repo.Open(ctx, "/data/readme.txt"); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for unknown extension, got %v", err)
	}

	_, err := repo.Open(ctx, filepath.Join(t.TempDir(), "missing.gpkg"))
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Errorf("expected StorageError for missing file, got %v", err)
	}
}

func TestRepositoryClose(t *testing.T) {
	path := createGeoPackage(t, "epsg.gpkg")
	repo := NewRepository(testLogger())
	ctx := context.Background()

	if _, err := repo.Open(ctx, path); err != nil {
		t.Fatal(err)
	}
	if err := repo.Close(ctx, "epsg"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := repo.Definitions(ctx, "epsg"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Errorf("expected ErrCatalogNotFound after close, got %v", err)
	}
	if err := repo.Close(ctx, "epsg"); err != nil {
		t.Errorf("closing twice should not error, got %v", err)
	}
}
