package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jobrunner/meridian/internal/ports/output"
)

// HTTPStorage implements ObjectStorage for catalogs published on a web
// server. The server provides an index file listing one catalog per line,
// optionally followed by its size in bytes and an ETag:
//
//	# comment
//	epsg.gpkg 5242880 "a1b2c3"
//	local.yaml
type HTTPStorage struct {
	client    *http.Client
	baseURL   string
	indexFile string
	username  string
	password  string
}

// HTTPConfig holds HTTP storage configuration.
type HTTPConfig struct {
	BaseURL   string
	IndexFile string // default: index.txt
	Timeout   time.Duration
	Username  string
	Password  string
}

// NewHTTPStorage creates a new HTTP storage adapter.
func NewHTTPStorage(cfg HTTPConfig) *HTTPStorage {
	if cfg.IndexFile == "" {
		cfg.IndexFile = "index.txt"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}

	return &HTTPStorage{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		indexFile: cfg.IndexFile,
		username:  cfg.Username,
		password:  cfg.Password,
	}
}

// List returns the catalog files named in the index file.
func (s *HTTPStorage) List(ctx context.Context) ([]output.StorageObject, error) {
	body, err := s.get(ctx, http.MethodGet, s.indexFile)
	if err != nil {
		return nil, storageError("list", s.indexFile, err, isHTTPNotFound(err))
	}
	defer func() { _ = body.Close() }()

	objects, err := parseIndex(body)
	if err != nil {
		return nil, storageError("list", s.indexFile, err, false)
	}
	return objects, nil
}

// parseIndex reads index lines. Blank lines, comments and non-catalog
// entries are skipped.
func parseIndex(r io.Reader) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		obj := output.StorageObject{Key: fields[0]}
		if !isCatalogKey(obj.Key) {
			continue
		}
		if len(fields) > 1 {
			size, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("index entry %s: invalid size %q", obj.Key, fields[1])
			}
			obj.Size = size
		}
		if len(fields) > 2 {
			obj.ETag = strings.Trim(fields[2], "\"")
		}
		objects = append(objects, obj)
	}

	return objects, scanner.Err()
}

// Download fetches a catalog to the local filesystem.
func (s *HTTPStorage) Download(ctx context.Context, key string, dest string) error {
	body, err := s.GetReader(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := writeFile(dest, body); err != nil {
		return storageError("download", key, err, false)
	}
	return nil
}

// GetReader returns a reader for the given file.
func (s *HTTPStorage) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.get(ctx, http.MethodGet, key)
	if err != nil {
		return nil, storageError("download", key, err, isHTTPNotFound(err))
	}
	return body, nil
}

// Exists checks if a file exists via HTTP HEAD request.
func (s *HTTPStorage) Exists(ctx context.Context, key string) (bool, error) {
	body, err := s.get(ctx, http.MethodHead, key)
	switch {
	case err == nil:
		_ = body.Close()
		return true, nil
	case isHTTPNotFound(err):
		return false, nil
	default:
		return false, storageError("head", key, err, false)
	}
}

// statusError reports a non-200 response.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.code, e.url)
}

func isHTTPNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// get issues a request for key and returns the body of a 200 response.
func (s *HTTPStorage) get(ctx context.Context, method, key string) (io.ReadCloser, error) {
	fileURL := s.baseURL + "/" + strings.TrimPrefix(key, "/")

	req, err := http.NewRequestWithContext(ctx, method, fileURL, nil)
	if err != nil {
		return nil, err
	}
	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &statusError{code: resp.StatusCode, url: fileURL}
	}
	return resp.Body, nil
}
