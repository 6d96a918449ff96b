package application

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jobrunner/meridian/internal/domain"
)

func mustUTM(t *testing.T, zone int, north bool) *domain.ProjectedCS {
	t.Helper()
	cs, err := domain.WGS84UTM(zone, north)
	if err != nil {
		t.Fatal(err)
	}
	return cs
}

func TestCatalogRegistryBuiltins(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	tests := []struct {
		srid int
		kind domain.CSKind
	}{
		{4326, domain.KindGeographic},
		{4258, domain.KindGeographic},
		{4230, domain.KindGeographic},
		{4322, domain.KindGeographic},
		{4978, domain.KindGeocentric},
		{3395, domain.KindProjected},
	}

	for _, tt := range tests {
		cs, err := registry.Lookup(ctx, tt.srid)
		if err != nil {
			t.Errorf("Lookup(%d) failed: %v", tt.srid, err)
			continue
		}
		if cs.Kind() != tt.kind {
			t.Errorf("Lookup(%d) kind = %s, want %s", tt.srid, cs.Kind(), tt.kind)
		}
		if got := domain.SRID(cs); got != tt.srid {
			t.Errorf("Lookup(%d) returned SRID %d", tt.srid, got)
		}
	}
}

func TestCatalogRegistryDefinitionErrors(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	tests := []struct {
		name string
		srid int
		want error
	}{
		{"zero", 0, domain.ErrInvalidSRID},
		{"negative", -4326, domain.ErrInvalidSRID},
		{"unknown", 123456, domain.ErrCRSNotFound},
		{"utm zone 0", 32600, domain.ErrCRSNotFound},
		{"utm zone 61", 32761, domain.ErrCRSNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Definition(ctx, tt.srid)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCatalogRegistryUTMOnDemand(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	d, err := registry.Definition(ctx, 32733)
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if d.Description != "generated" {
		t.Errorf("expected generated definition, got %q", d.Description)
	}
	if !d.System.EqualParams(mustUTM(t, 33, false)) {
		t.Error("expected WGS 84 / UTM zone 33S")
	}

	defs, _ := registry.ListDefinitions(ctx)
	for _, def := range defs {
		if def.SRID == 32733 {
			t.Error("generated zones should not be listed")
		}
	}
}

func TestCatalogRegistryLoadUnload(t *testing.T) {
	repo := &mockRepository{
		catalogs: map[string]*domain.Catalog{
			"/data/local.gpkg": {ID: "local", Name: "Local", Path: "/data/local.gpkg", Definitions: 1},
		},
		definitions: map[string][]domain.Definition{
			"local": {catalogDefinition("local", 900001, mustUTM(t, 32, true))},
		},
	}
	metrics := newMockMetrics()
	registry := NewCatalogRegistry(repo, &mockStorage{}, metrics, testLogger(), os.TempDir())
	ctx := context.Background()

	if err := registry.LoadCatalog(ctx, "/data/local.gpkg"); err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	cs, err := registry.Lookup(ctx, 900001)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !cs.EqualParams(mustUTM(t, 32, true)) {
		t.Error("expected catalog system")
	}

	catalogs, _ := registry.ListCatalogs(ctx)
	if len(catalogs) != 1 || catalogs[0].ID != "local" {
		t.Errorf("expected catalog local, got %v", catalogs)
	}
	if status, _ := registry.GetCatalogStatus(ctx, "local"); status != domain.StatusReady {
		t.Errorf("expected ready, got %s", status)
	}
	if metrics.loaded != 1 || metrics.ready != 1 || metrics.indexed != 1 {
		t.Errorf("expected metrics 1/1/1, got %d/%d/%d", metrics.loaded, metrics.ready, metrics.indexed)
	}

	if err := registry.UnloadCatalog(ctx, "local"); err != nil {
		t.Fatalf("UnloadCatalog failed: %v", err)
	}
	if _, err := registry.Lookup(ctx, 900001); !errors.Is(err, domain.ErrCRSNotFound) {
		t.Errorf("expected ErrCRSNotFound after unload, got %v", err)
	}
	if _, err := registry.GetCatalog(ctx, "local"); !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Errorf("expected ErrCatalogNotFound, got %v", err)
	}
	if metrics.loaded != 0 || metrics.indexed != 0 {
		t.Errorf("expected metrics reset, got %d/%d", metrics.loaded, metrics.indexed)
	}
}

func TestCatalogRegistryOverrides(t *testing.T) {
	repo := &mockRepository{
		definitions: map[string][]domain.Definition{
			"first":  {catalogDefinition("first", 900001, mustUTM(t, 31, true))},
			"second": {catalogDefinition("second", 900001, mustUTM(t, 32, true))},
			"shadow": {catalogDefinition("shadow", 4326, domain.ED50())},
		},
	}
	registry := NewCatalogRegistry(repo, &mockStorage{}, newMockMetrics(), testLogger(), os.TempDir())
	ctx := context.Background()

	owner := func() string {
		t.Helper()
		d, err := registry.Definition(ctx, 900001)
		if err != nil {
			t.Fatalf("Definition failed: %v", err)
		}
		return d.Catalog
	}

	for _, path := range []string{"/data/first.yaml", "/data/second.yaml"} {
		if err := registry.LoadCatalog(ctx, path); err != nil {
			t.Fatalf("LoadCatalog(%s) failed: %v", path, err)
		}
	}
	if got := owner(); got != "second" {
		t.Errorf("expected later catalog to win, got %s", got)
	}

	// Reloading moves a catalog to the end of the load order.
	if err := registry.LoadCatalog(ctx, "/data/first.yaml"); err != nil {
		t.Fatal(err)
	}
	if got := owner(); got != "first" {
		t.Errorf("expected reloaded catalog to win, got %s", got)
	}

	if err := registry.UnloadCatalog(ctx, "first"); err != nil {
		t.Fatal(err)
	}
	if got := owner(); got != "second" {
		t.Errorf("expected remaining catalog after unload, got %s", got)
	}

	// Catalogs override built-ins.
	if err := registry.LoadCatalog(ctx, "/data/shadow.yaml"); err != nil {
		t.Fatal(err)
	}
	cs, _ := registry.Lookup(ctx, 4326)
	if !cs.EqualParams(domain.ED50()) {
		t.Error("expected catalog definition to shadow the built-in")
	}
	if err := registry.UnloadCatalog(ctx, "shadow"); err != nil {
		t.Fatal(err)
	}
	cs, _ = registry.Lookup(ctx, 4326)
	if !cs.EqualParams(domain.WGS84()) {
		t.Error("expected built-in after unloading the shadowing catalog")
	}
}

func TestCatalogRegistryLoadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("open fails", func(t *testing.T) {
		openErr := &domain.StorageError{Operation: "open", Key: "x", Err: os.ErrNotExist}
		registry := NewCatalogRegistry(&mockRepository{openErr: openErr}, &mockStorage{}, newMockMetrics(), testLogger(), os.TempDir())

		if err := registry.LoadCatalog(ctx, "/data/x.gpkg"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected open error, got %v", err)
		}
		if registry.CatalogCount() != 0 {
			t.Errorf("expected no catalogs, got %d", registry.CatalogCount())
		}
	})

	t.Run("definitions fail", func(t *testing.T) {
		registry := NewCatalogRegistry(&mockRepository{defsErr: domain.ErrCatalogNotFound}, &mockStorage{}, newMockMetrics(), testLogger(), os.TempDir())

		err := registry.LoadCatalog(ctx, "/data/broken.gpkg")
		var ce *domain.CatalogError
		if !errors.As(err, &ce) || ce.CatalogID != "broken" {
			t.Fatalf("expected CatalogError for broken, got %v", err)
		}
		if status, _ := registry.GetCatalogStatus(ctx, "broken"); status != domain.StatusError {
			t.Errorf("expected error status, got %s", status)
		}
		if registry.IsReady("broken") {
			t.Error("expected catalog not to be ready")
		}
	})
}

func TestCatalogRegistryOnChange(t *testing.T) {
	registry := newTestRegistry()
	ctx := context.Background()

	calls := 0
	registry.OnChange(func() { calls++ })

	if err := registry.LoadCatalog(ctx, "/data/a.yaml"); err != nil {
		t.Fatal(err)
	}
	if err := registry.UnloadCatalog(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := registry.UnloadCatalog(ctx, "nonexistent"); err != nil {
		t.Errorf("unloading a missing catalog should not error, got %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}
}

func TestCatalogRegistryListDefinitions(t *testing.T) {
	registry := newTestRegistry()

	defs, err := registry.ListDefinitions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []int{3395, 4230, 4258, 4322, 4326, 4978}
	if len(defs) != len(want) {
		t.Fatalf("expected %d definitions, got %d", len(want), len(defs))
	}
	for i, d := range defs {
		if d.SRID != want[i] {
			t.Errorf("defs[%d].SRID = %d, want %d", i, d.SRID, want[i])
		}
		if d.Description != "built-in" || d.WKT == "" {
			t.Errorf("unexpected built-in definition %+v", d)
		}
	}
}

func TestCatalogRegistryGetCatalogStatusNotFound(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.GetCatalogStatus(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Errorf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestDeriveCatalogID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"epsg.gpkg", "epsg"},
		{"/data/local.yaml", "local"},
		{"prefix/nested/srs.v2.sqlite", "srs.v2"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := deriveCatalogID(tt.path); got != tt.want {
			t.Errorf("deriveCatalogID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
