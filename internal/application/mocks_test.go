package application

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/meridian/internal/domain"
	"github.com/jobrunner/meridian/internal/ports/output"
)

// mockRepository implements output.CatalogRepository for testing. Catalogs
// are keyed by path; unknown paths open as empty catalogs.
type mockRepository struct {
	catalogs    map[string]*domain.Catalog
	definitions map[string][]domain.Definition
	openErr     error
	defsErr     error
	closeErr    error
}

func (m *mockRepository) Open(_ context.Context, path string) (*domain.Catalog, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	if cat, ok := m.catalogs[path]; ok {
		c := *cat
		return &c, nil
	}
	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &domain.Catalog{ID: id, Name: id, Path: path}, nil
}

func (m *mockRepository) Close(_ context.Context, _ string) error {
	return m.closeErr
}

func (m *mockRepository) Definitions(_ context.Context, id string) ([]domain.Definition, error) {
	if m.defsErr != nil {
		return nil, m.defsErr
	}
	return m.definitions[id], nil
}

// mockStorage implements output.ObjectStorage for testing.
type mockStorage struct {
	objects     []output.StorageObject
	downloadErr error
	listErr     error
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objects, nil
}

func (m *mockStorage) Download(_ context.Context, _, _ string) error {
	return m.downloadErr
}

func (m *mockStorage) GetReader(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func (m *mockStorage) Exists(_ context.Context, _ string) (bool, error) {
	return true, nil
}

// mockMetrics records what the services report.
type mockMetrics struct {
	output.NoOpMetrics

	mu         sync.Mutex
	transforms map[bool]int
	points     int
	hits       int
	misses     int
	loaded     int
	ready      int
	indexed    int
	storageOps map[string]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{transforms: map[bool]int{}, storageOps: map[string]int{}}
}

func (m *mockMetrics) IncTransformCount(_, _ int, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transforms[success]++
}

func (m *mockMetrics) ObserveTransformDuration(_, _ int, _ time.Duration) {}

func (m *mockMetrics) AddPointsTransformed(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points += count
}

func (m *mockMetrics) IncCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *mockMetrics) SetCatalogsLoaded(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = count
}

func (m *mockMetrics) SetCatalogsReady(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = count
}

func (m *mockMetrics) SetDefinitionsIndexed(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = count
}

func (m *mockMetrics) IncStorageOperations(operation string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageOps[operation]++
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRegistry() *CatalogRegistry {
	return NewCatalogRegistry(&mockRepository{}, &mockStorage{}, &output.NoOpMetrics{}, testLogger(), os.TempDir())
}

// catalogDefinition builds a definition owned by catalog with the given system.
func catalogDefinition(catalog string, srid int, cs domain.CoordinateSystem) domain.Definition {
	return domain.Definition{
		SRID:      srid,
		Name:      cs.Metadata().Name,
		Authority: "TEST",
		Code:      srid,
		Catalog:   catalog,
		System:    cs,
	}
}
