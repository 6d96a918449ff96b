// Package application contains the application services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jobrunner/meridian/internal/domain"
	"github.com/jobrunner/meridian/internal/ports/output"
)

// CatalogRegistry manages loaded catalogs and resolves SRIDs to coordinate systems.
//
// Resolution order: catalogs loaded later win over earlier ones, catalogs win
// over the built-in systems, and WGS 84 / UTM codes not defined anywhere are
// constructed on demand.
type CatalogRegistry struct {
	mu        sync.RWMutex
	catalogs  map[string]*catalogEntry
	index     map[int]domain.Definition
	builtins  map[int]domain.Definition
	seq       uint64
	listeners []func()
	repo      output.CatalogRepository
	storage   output.ObjectStorage
	metrics   output.MetricsCollector
	logger    *slog.Logger
	localPath string
}

type catalogEntry struct {
	Catalog     *domain.Catalog
	Status      domain.CatalogStatus
	Definitions []domain.Definition
	Error       error
	seq         uint64
}

// NewCatalogRegistry creates a new catalog registry seeded with the built-in systems.
func NewCatalogRegistry(
	repo output.CatalogRepository,
	storage output.ObjectStorage,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	localPath string,
) *CatalogRegistry {
	r := &CatalogRegistry{
		catalogs:  make(map[string]*catalogEntry),
		builtins:  builtinDefinitions(),
		repo:      repo,
		storage:   storage,
		metrics:   metrics,
		logger:    logger,
		localPath: localPath,
	}
	r.index = r.buildIndex()
	return r
}

func builtinDefinitions() map[int]domain.Definition {
	systems := []domain.CoordinateSystem{
		domain.WGS84(),
		domain.ETRS89(),
		domain.ED50(),
		domain.WGS72(),
		domain.WGS84Geocentric(),
		domain.WorldMercator(),
	}
	defs := make(map[int]domain.Definition, len(systems))
	for _, cs := range systems {
		d := definitionFor(cs)
		defs[d.SRID] = d
	}
	return defs
}

func definitionFor(cs domain.CoordinateSystem) domain.Definition {
	info := cs.Metadata()
	return domain.Definition{
		SRID:        domain.SRID(cs),
		Name:        info.Name,
		Authority:   info.Authority,
		Code:        int(info.AuthorityCode),
		WKT:         cs.WKT(),
		Description: "built-in",
		System:      cs,
	}
}

// OnChange registers fn to be called after the set of definitions changed.
func (r *CatalogRegistry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// LoadCatalog loads a catalog from the given path. Reloading a path that is
// already registered replaces its definitions.
func (r *CatalogRegistry) LoadCatalog(ctx context.Context, path string) error {
	r.logger.Info("loading catalog", "path", path)

	cat, err := r.repo.Open(ctx, path)
	if err != nil {
		r.logger.Error("failed to open catalog", "path", path, "error", err)
		return err
	}

	r.mu.Lock()
	r.seq++
	r.catalogs[cat.ID] = &catalogEntry{
		Catalog: cat,
		Status:  domain.StatusLoading,
		seq:     r.seq,
	}
	r.mu.Unlock()

	defs, err := r.repo.Definitions(ctx, cat.ID)

	r.mu.Lock()
	entry, ok := r.catalogs[cat.ID]
	if ok {
		if err != nil {
			entry.Status = domain.StatusError
			entry.Error = err
		} else {
			entry.Status = domain.StatusReady
			entry.Definitions = defs
			entry.Catalog.LoadedAt = time.Now()
		}
	}
	r.index = r.buildIndex()
	r.mu.Unlock()

	r.updateMetrics()
	r.notify()

	if err != nil {
		r.logger.Error("failed to read catalog definitions", "id", cat.ID, "error", err)
		return &domain.CatalogError{CatalogID: cat.ID, Err: err}
	}
	r.logger.Info("catalog loaded", "id", cat.ID, "definitions", len(defs), "skipped", cat.Skipped)
	return nil
}

// UnloadCatalog unloads a catalog.
func (r *CatalogRegistry) UnloadCatalog(ctx context.Context, catalogID string) error {
	r.logger.Info("unloading catalog", "id", catalogID)

	r.mu.Lock()
	if entry, ok := r.catalogs[catalogID]; ok {
		entry.Status = domain.StatusUnloading
	}
	r.mu.Unlock()

	if err := r.repo.Close(ctx, catalogID); err != nil {
		r.logger.Error("failed to close catalog", "id", catalogID, "error", err)
		return err
	}

	r.mu.Lock()
	_, existed := r.catalogs[catalogID]
	delete(r.catalogs, catalogID)
	r.index = r.buildIndex()
	r.mu.Unlock()

	r.updateMetrics()
	if existed {
		r.notify()
	}
	return nil
}

// buildIndex layers built-ins and ready catalogs in load order. Callers hold mu.
func (r *CatalogRegistry) buildIndex() map[int]domain.Definition {
	index := make(map[int]domain.Definition, len(r.builtins))
	for srid, d := range r.builtins {
		index[srid] = d
	}

	entries := make([]*catalogEntry, 0, len(r.catalogs))
	for _, entry := range r.catalogs {
		if entry.Status == domain.StatusReady {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	for _, entry := range entries {
		for _, d := range entry.Definitions {
			index[d.SRID] = d
		}
	}
	return index
}

func (r *CatalogRegistry) notify() {
	r.mu.RLock()
	listeners := append([]func(){}, r.listeners...)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// Lookup resolves an SRID to a coordinate system.
func (r *CatalogRegistry) Lookup(ctx context.Context, srid int) (domain.CoordinateSystem, error) {
	d, err := r.Definition(ctx, srid)
	if err != nil {
		return nil, err
	}
	return d.System, nil
}

// Definition returns the definition behind an SRID.
func (r *CatalogRegistry) Definition(_ context.Context, srid int) (*domain.Definition, error) {
	if srid <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidSRID, srid)
	}

	r.mu.RLock()
	d, ok := r.index[srid]
	r.mu.RUnlock()
	if ok {
		return &d, nil
	}

	if zone, north, ok := domain.UTMZone(srid); ok {
		cs, err := domain.WGS84UTM(zone, north)
		if err != nil {
			return nil, err
		}
		d := definitionFor(cs)
		d.Description = "generated"
		return &d, nil
	}

	return nil, fmt.Errorf("%w: srid %d", domain.ErrCRSNotFound, srid)
}

// ListDefinitions returns every indexed definition ordered by SRID. UTM zones
// that are only generated on demand are not listed.
func (r *CatalogRegistry) ListDefinitions(_ context.Context) ([]domain.Definition, error) {
	r.mu.RLock()
	defs := make([]domain.Definition, 0, len(r.index))
	for _, d := range r.index {
		defs = append(defs, d)
	}
	r.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].SRID < defs[j].SRID })
	return defs, nil
}

// ListCatalogs returns all registered catalogs.
func (r *CatalogRegistry) ListCatalogs(_ context.Context) ([]domain.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalogs := make([]domain.Catalog, 0, len(r.catalogs))
	for _, entry := range r.catalogs {
		catalogs = append(catalogs, *entry.Catalog)
	}
	sort.Slice(catalogs, func(i, j int) bool { return catalogs[i].ID < catalogs[j].ID })

	return catalogs, nil
}

// GetCatalog returns a specific catalog by ID.
func (r *CatalogRegistry) GetCatalog(_ context.Context, id string) (*domain.Catalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.catalogs[id]
	if !ok {
		return nil, domain.ErrCatalogNotFound
	}

	cat := *entry.Catalog
	return &cat, nil
}

// GetCatalogStatus returns the status of a catalog.
func (r *CatalogRegistry) GetCatalogStatus(_ context.Context, id string) (domain.CatalogStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.catalogs[id]
	if !ok {
		return "", domain.ErrCatalogNotFound
	}

	return entry.Status, nil
}

// IsReady returns true if a catalog finished loading.
func (r *CatalogRegistry) IsReady(catalogID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.catalogs[catalogID]
	if !ok {
		return false
	}

	return entry.Status == domain.StatusReady
}

// counts returns loaded catalogs, ready catalogs and definitions contributed by catalogs.
func (r *CatalogRegistry) counts() (total, ready, indexed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total = len(r.catalogs)
	for _, entry := range r.catalogs {
		if entry.Status == domain.StatusReady {
			ready++
		}
	}
	for _, d := range r.index {
		if d.Catalog != "" {
			indexed++
		}
	}
	return total, ready, indexed
}

// updateMetrics updates the metrics collector with current catalog counts.
func (r *CatalogRegistry) updateMetrics() {
	total, ready, indexed := r.counts()
	r.metrics.SetCatalogsLoaded(total)
	r.metrics.SetCatalogsReady(ready)
	r.metrics.SetDefinitionsIndexed(indexed)
}

// LoadAll loads all catalogs from storage.
func (r *CatalogRegistry) LoadAll(ctx context.Context) error {
	r.logger.Info("loading all catalogs from storage")

	objects, err := r.storage.List(ctx)
	r.metrics.IncStorageOperations("list", err == nil)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		localPath, err := r.download(ctx, obj.Key)
		if err != nil {
			r.logger.Error("failed to download catalog", "key", obj.Key, "error", err)
			continue
		}

		if err := r.LoadCatalog(ctx, localPath); err != nil {
			r.logger.Error("failed to load catalog", "path", localPath, "error", err)
		}
	}

	return nil
}

// download fetches an object into the local catalog directory and records
// the storage metrics.
func (r *CatalogRegistry) download(ctx context.Context, key string) (string, error) {
	localPath := filepath.Join(r.localPath, key)
	start := time.Now()
	err := r.storage.Download(ctx, key, localPath)
	r.metrics.ObserveStorageDuration("download", time.Since(start))
	r.metrics.IncStorageOperations("download", err == nil)
	return localPath, err
}

// IsLoaded returns true if a catalog with the given ID is registered.
func (r *CatalogRegistry) IsLoaded(catalogID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.catalogs[catalogID]
	return ok
}

// CatalogCount returns the number of registered catalogs.
func (r *CatalogRegistry) CatalogCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.catalogs)
}

// SyncStats contains statistics from a sync operation.
type SyncStats struct {
	Added   int
	Removed int
}

// Sync synchronizes with remote storage, downloading new catalogs and removing
// catalogs that no longer exist there.
func (r *CatalogRegistry) Sync(ctx context.Context) (SyncStats, error) {
	r.logger.Info("syncing catalogs from storage")

	objects, err := r.storage.List(ctx)
	r.metrics.IncStorageOperations("list", err == nil)
	if err != nil {
		return SyncStats{}, err
	}

	remote := make(map[string]string) // catalogID -> objectKey
	for _, obj := range objects {
		remote[deriveCatalogID(obj.Key)] = obj.Key
	}

	stats := SyncStats{}

	for catalogID, objectKey := range remote {
		if r.IsLoaded(catalogID) {
			r.logger.Debug("catalog already loaded, skipping", "id", catalogID)
			continue
		}

		localPath, err := r.download(ctx, objectKey)
		if err != nil {
			r.logger.Error("failed to download catalog", "key", objectKey, "error", err)
			continue
		}

		if err := r.LoadCatalog(ctx, localPath); err != nil {
			r.logger.Error("failed to load catalog", "path", localPath, "error", err)
			continue
		}

		stats.Added++
		r.logger.Info("new catalog synced", "id", catalogID)
	}

	for _, stale := range r.findCatalogsToRemove(remote) {
		r.logger.Info("removing catalog not in remote storage", "id", stale.id)

		if err := r.UnloadCatalog(ctx, stale.id); err != nil {
			r.logger.Error("failed to unload removed catalog", "id", stale.id, "error", err)
			continue
		}

		if stale.path != "" {
			if err := os.Remove(stale.path); err != nil && !os.IsNotExist(err) {
				r.logger.Warn("failed to delete local cache file", "path", stale.path, "error", err)
			} else {
				r.logger.Debug("deleted local cache file", "path", stale.path)
			}
		}

		stats.Removed++
	}

	r.logger.Info("sync completed", "added", stats.Added, "removed", stats.Removed, "total", r.CatalogCount())
	return stats, nil
}

type staleCatalog struct {
	id   string
	path string
}

// findCatalogsToRemove returns catalogs that are loaded but not in remote storage.
func (r *CatalogRegistry) findCatalogsToRemove(remote map[string]string) []staleCatalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var toRemove []staleCatalog
	for id, entry := range r.catalogs {
		if _, exists := remote[id]; exists {
			continue
		}
		stale := staleCatalog{id: id}
		if entry.Catalog != nil {
			stale.path = entry.Catalog.Path
		}
		toRemove = append(toRemove, stale)
	}
	return toRemove
}

// deriveCatalogID extracts a catalog ID from a file path or object key.
func deriveCatalogID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
