// Package storage provides object storage adapters that serve catalog files.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jobrunner/meridian/internal/domain"
)

// isCatalogKey reports whether an object key names a catalog file.
func isCatalogKey(key string) bool {
	if strings.HasPrefix(filepath.Base(key), ".") {
		return false
	}
	_, ok := domain.CatalogFormatForPath(key)
	return ok
}

// relativeKey strips the configured prefix from a remote object name.
func relativeKey(name, prefix string) string {
	return strings.TrimPrefix(strings.TrimPrefix(name, prefix), "/")
}

// joinKey prepends prefix to key.
func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}

// writeFile streams r into dest. The data lands in a hidden sibling file
// first and is renamed into place, so a directory watcher never sees a
// partially written catalog.
func writeFile(dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// storageError wraps err with the operation and key. Missing objects unwrap
// to domain.ErrNotFound, everything else to domain.ErrStorageUnavailable.
func storageError(op, key string, err error, notFound bool) error {
	kind := domain.ErrStorageUnavailable
	if notFound {
		kind = domain.ErrNotFound
	}
	return &domain.StorageError{
		Operation: op,
		Key:       key,
		Err:       fmt.Errorf("%w: %w", kind, err),
	}
}
