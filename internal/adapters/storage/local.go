package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jobrunner/meridian/internal/ports/output"
)

// LocalStorage implements ObjectStorage for a local catalog directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage adapter.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// List returns all catalog files below the base directory.
func (s *LocalStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isCatalogKey(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}

		objects = append(objects, output.StorageObject{
			Key:          filepath.ToSlash(relPath),
			Size:         info.Size(),
			LastModified: info.ModTime().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, storageError("list", "", err, errors.Is(err, fs.ErrNotExist))
	}

	return objects, nil
}

// Download copies a catalog to dest. When dest is the file itself nothing
// is copied.
func (s *LocalStorage) Download(ctx context.Context, key string, dest string) error {
	srcPath := s.FullPath(key)
	if same, _ := sameFile(srcPath, dest); same {
		return nil
	}

	src, err := os.Open(srcPath) //#nosec G304 -- key comes from List
	if err != nil {
		return storageError("download", key, err, errors.Is(err, fs.ErrNotExist))
	}
	defer func() { _ = src.Close() }()

	if err := writeFile(dest, src); err != nil {
		return storageError("download", key, err, false)
	}
	return nil
}

// GetReader returns a reader for the given catalog.
func (s *LocalStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.FullPath(key))
	if err != nil {
		return nil, storageError("read", key, err, errors.Is(err, fs.ErrNotExist))
	}
	return f, nil
}

// Exists checks if a catalog file exists.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.FullPath(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, storageError("stat", key, err, false)
	}
}

// FullPath returns the full path for a key.
func (s *LocalStorage) FullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func sameFile(a, b string) (bool, error) {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true, nil
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}
