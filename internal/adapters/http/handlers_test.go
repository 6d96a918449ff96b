package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jobrunner/meridian/internal/application"
	"github.com/jobrunner/meridian/internal/config"
	"github.com/jobrunner/meridian/internal/domain"
	"github.com/jobrunner/meridian/internal/ports/output"
)

// mockRepository serves in-memory catalogs keyed by path.
type mockRepository struct {
	catalogs    map[string]*domain.Catalog
	definitions map[string][]domain.Definition
}

func (m *mockRepository) Open(_ context.Context, path string) (*domain.Catalog, error) {
	cat, ok := m.catalogs[path]
	if !ok {
		return nil, domain.ErrCatalogNotFound
	}
	c := *cat
	return &c, nil
}

func (m *mockRepository) Close(_ context.Context, _ string) error {
	return nil
}

func (m *mockRepository) Definitions(_ context.Context, id string) ([]domain.Definition, error) {
	return m.definitions[id], nil
}

// mockStorage implements output.ObjectStorage with an empty bucket.
type mockStorage struct{}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	return nil, nil
}

func (m *mockStorage) Download(_ context.Context, _, _ string) error {
	return nil
}

func (m *mockStorage) GetReader(_ context.Context, _ string) (io.ReadCloser, error) {
	return nil, nil
}

func (m *mockStorage) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestServer wires real services around a repository holding one catalog
// "local" that defines SRID 900001 as WGS 84 / UTM zone 33N.
func newTestServer(t *testing.T, withSync bool) *Server {
	t.Helper()
	logger := testLogger()

	utm, err := domain.WGS84UTM(33, true)
	if err != nil {
		t.Fatal(err)
	}
	repo := &mockRepository{
		catalogs: map[string]*domain.Catalog{
			"/data/local.yaml": {ID: "local", Name: "Local systems", Path: "/data/local.yaml", Format: domain.FormatYAML, Definitions: 1},
		},
		definitions: map[string][]domain.Definition{
			"local": {{SRID: 900001, Name: "Local UTM", Authority: "LOCAL", Code: 1, Catalog: "local", System: utm}},
		},
	}

	registry := application.NewCatalogRegistry(repo, &mockStorage{}, &output.NoOpMetrics{}, logger, t.TempDir())
	if err := registry.LoadCatalog(context.Background(), "/data/local.yaml"); err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}

	transforms, err := application.NewTransformService(registry, &output.NoOpMetrics{}, logger,
		application.TransformServiceConfig{MaxPoints: 3})
	if err != nil {
		t.Fatal(err)
	}

	var syncService *application.SyncService
	if withSync {
		syncService = application.NewSyncService(registry, time.Hour, time.Minute, logger)
	}

	return NewServer(
		config.ServerConfig{
			Host:         "localhost",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		transforms,
		registry,
		application.NewHealthService(registry),
		syncService,
		nil,
		logger,
	)
}

func serve(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, false)
	rr := serve(s, http.MethodGet, "/health", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["catalogs_loaded"] != float64(1) || body["catalogs_ready"] != float64(1) {
		t.Errorf("expected one loaded and ready catalog, got %v", body)
	}
	if body["definitions_indexed"] != float64(1) {
		t.Errorf("expected 1 indexed definition, got %v", body["definitions_indexed"])
	}
}

func TestHandleProbes(t *testing.T) {
	s := newTestServer(t, false)
	for _, path := range []string{"/health/live", "/health/ready"} {
		rr := serve(s, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, rr.Code)
		}
	}
}

func TestHandleTransformPoint(t *testing.T) {
	s := newTestServer(t, false)
	rr := serve(s, http.MethodGet, "/api/v1/transform?from=4326&to=32632&x=9&y=50", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)

	point, ok := body["point"].([]interface{})
	if !ok || len(point) != 2 {
		t.Fatalf("expected 2D point, got %v", body["point"])
	}
	e, n := point[0].(float64), point[1].(float64)
	if math.Abs(e-500000) > 1e-6 {
		t.Errorf("expected easting 500000 on the central meridian, got %f", e)
	}
	if n < 5.5e6 || n > 5.6e6 {
		t.Errorf("expected northing near 5.54e6, got %f", n)
	}

	op := body["operation"].(map[string]interface{})
	if op["type"] != "conversion" {
		t.Errorf("expected conversion, got %v", op["type"])
	}
}

func TestHandleTransformPointWithHeight(t *testing.T) {
	s := newTestServer(t, false)
	rr := serve(s, http.MethodGet, "/api/v1/transform?from=4326&to=4978&x=0&y=0&z=0", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	point := decode(t, rr)["point"].([]interface{})
	if len(point) != 3 {
		t.Fatalf("expected 3D point, got %v", point)
	}
	if x := point[0].(float64); math.Abs(x-6378137) > 1e-3 {
		t.Errorf("expected X 6378137, got %f", x)
	}
}

func TestHandleTransformErrors(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing from", "/api/v1/transform?to=4326&x=1&y=2", http.StatusBadRequest},
		{"invalid to", "/api/v1/transform?from=4326&to=abc&x=1&y=2", http.StatusBadRequest},
		{"missing y", "/api/v1/transform?from=4326&to=4326&x=1", http.StatusBadRequest},
		{"invalid x", "/api/v1/transform?from=4326&to=4326&x=east&y=2", http.StatusBadRequest},
		{"longitude out of range", "/api/v1/transform?from=4326&to=32632&x=200&y=2", http.StatusBadRequest},
		{"NaN longitude", "/api/v1/transform?from=4326&to=3395&x=NaN&y=2", http.StatusBadRequest},
		{"NaN northing", "/api/v1/transform?from=3395&to=4326&x=1&y=nan", http.StatusBadRequest},
		{"non-positive srid", "/api/v1/transform?from=0&to=4326&x=1&y=2", http.StatusBadRequest},
		{"unknown srid", "/api/v1/transform?from=4326&to=123456&x=1&y=2", http.StatusNotFound},
		{"unsupported pairing", "/api/v1/transform?from=3395&to=4978&x=1&y=2", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, http.MethodGet, tt.target, nil)
			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			if body := decode(t, rr); body["message"] == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestHandleTransformBatch(t *testing.T) {
	s := newTestServer(t, false)
	body := []byte(`{"from": 4326, "to": 900001, "points": [[15, 0], [15, 10]]}`)
	rr := serve(s, http.MethodPost, "/api/v1/transform", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	out := decode(t, rr)
	if out["count"] != float64(2) {
		t.Errorf("expected 2 points, got %v", out["count"])
	}
	points := out["points"].([]interface{})
	first := points[0].([]interface{})
	if math.Abs(first[0].(float64)-500000) > 1e-6 || math.Abs(first[1].(float64)) > 1e-6 {
		t.Errorf("expected (500000, 0), got %v", first)
	}
}

func TestHandleTransformBatchErrors(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"from": 4326`, http.StatusBadRequest},
		{"unknown field", `{"from": 4326, "to": 4326, "points": [[1, 2]], "srid": 1}`, http.StatusBadRequest},
		{"no points", `{"from": 4326, "to": 4326, "points": []}`, http.StatusBadRequest},
		{"bad dimension", `{"from": 4326, "to": 4326, "points": [[1, 2], [1]]}`, http.StatusBadRequest},
		{"too many points", `{"from": 4326, "to": 4326, "points": [[1, 2], [1, 2], [1, 2], [1, 2]]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, http.MethodPost, "/api/v1/transform", []byte(tt.body))
			if rr.Code != tt.want {
				t.Errorf("expected status %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestHandleDescribe(t *testing.T) {
	s := newTestServer(t, false)
	rr := serve(s, http.MethodGet, "/api/v1/transform/describe?from=4230&to=4326", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if body["type"] != "transformation" {
		t.Errorf("expected transformation, got %v", body["type"])
	}
	steps := body["steps"].([]interface{})
	if len(steps) != 3 || steps[1] != "Bursa_Wolf" {
		t.Errorf("expected three steps around Bursa_Wolf, got %v", steps)
	}
	if body["from"] != float64(4230) || body["to"] != float64(4326) {
		t.Errorf("unexpected pair %v -> %v", body["from"], body["to"])
	}
}

func TestHandleListCRS(t *testing.T) {
	s := newTestServer(t, false)
	rr := serve(s, http.MethodGet, "/api/v1/crs", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["count"] != float64(7) {
		t.Errorf("expected 6 built-ins plus 1 catalog definition, got %v", body["count"])
	}
	crs := body["crs"].([]interface{})
	last := crs[len(crs)-1].(map[string]interface{})
	if last["srid"] != float64(900001) || last["catalog"] != "local" {
		t.Errorf("expected catalog definition last, got %v", last)
	}
	if _, ok := last["wkt"]; ok {
		t.Error("expected list entries without WKT")
	}
}

func TestHandleGetCRS(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		name     string
		srid     string
		want     int
		wantKind string
	}{
		{"built-in", "4326", http.StatusOK, "geographic"},
		{"catalog", "900001", http.StatusOK, "projected"},
		{"generated utm", "32733", http.StatusOK, "projected"},
		{"unknown", "123456", http.StatusNotFound, ""},
		{"non-numeric", "abc", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, http.MethodGet, "/api/v1/crs/"+tt.srid, nil)
			if rr.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rr.Code)
			}
			if tt.want != http.StatusOK {
				return
			}
			body := decode(t, rr)
			if body["kind"] != tt.wantKind {
				t.Errorf("expected kind %s, got %v", tt.wantKind, body["kind"])
			}
			if wkt, _ := body["wkt"].(string); wkt == "" {
				t.Error("expected WKT in response")
			}
		})
	}
}

func TestHandleCatalogs(t *testing.T) {
	s := newTestServer(t, false)

	rr := serve(s, http.MethodGet, "/api/v1/catalogs", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if body := decode(t, rr); body["count"] != float64(1) {
		t.Errorf("expected 1 catalog, got %v", body["count"])
	}

	rr = serve(s, http.MethodGet, "/api/v1/catalogs/local", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["status"] != string(domain.StatusReady) || body["format"] != string(domain.FormatYAML) {
		t.Errorf("unexpected catalog %v", body)
	}

	rr = serve(s, http.MethodGet, "/api/v1/catalogs/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleSync(t *testing.T) {
	s := newTestServer(t, false)
	if rr := serve(s, http.MethodPost, "/api/v1/sync", nil); rr.Code != http.StatusMethodNotAllowed && rr.Code != http.StatusNotFound {
		t.Errorf("expected sync to be unavailable without a sync service, got %d", rr.Code)
	}

	s = newTestServer(t, true)
	rr := serve(s, http.MethodPost, "/api/v1/sync", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	// The empty remote removes the local catalog.
	if body := decode(t, rr); body["catalogs_removed"] != float64(1) {
		t.Errorf("expected 1 removed catalog, got %v", body["catalogs_removed"])
	}

	rr = serve(s, http.MethodPost, "/api/v1/sync", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	rr = serve(s, http.MethodGet, "/api/v1/sync", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
	if body := decode(t, rr); body["interval"] != "1h0m0s" {
		t.Errorf("expected interval 1h0m0s, got %v", body["interval"])
	}
}

func TestHandleOpenAPI(t *testing.T) {
	s := newTestServer(t, false)
	rr := serve(s, http.MethodGet, "/openapi.json", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decode(t, rr)
	if body["openapi"] != "3.0.3" {
		t.Errorf("expected openapi 3.0.3, got %v", body["openapi"])
	}
	paths := body["paths"].(map[string]interface{})
	if _, ok := paths["/api/v1/transform"]; !ok {
		t.Error("expected /api/v1/transform in paths")
	}
}

func TestRenderOpenAPI(t *testing.T) {
	out, err := renderOpenAPI([]byte("paths:\n  /x:\n    get:\n      responses:\n        200: {description: ok}\n        '404': {description: missing}\n"))
	if err != nil {
		t.Fatalf("renderOpenAPI failed: %v", err)
	}
	var doc struct {
		Paths map[string]map[string]struct {
			Responses map[string]interface{} `json:"responses"`
		} `json:"paths"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("rendered document is not JSON: %v", err)
	}
	responses := doc.Paths["/x"]["get"].Responses
	if _, ok := responses["200"]; !ok {
		t.Errorf("expected the unquoted status code to survive, got %v", responses)
	}
	if _, ok := responses["404"]; !ok {
		t.Errorf("expected the quoted status code, got %v", responses)
	}

	if _, err := renderOpenAPI([]byte("paths: [unclosed")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &domain.ValidationError{Field: "from"}, http.StatusBadRequest},
		{"configuration", &domain.ConfigurationError{Message: "x"}, http.StatusBadRequest},
		{"crs not found", domain.ErrCRSNotFound, http.StatusNotFound},
		{"unsupported", &domain.UnsupportedOperationError{Operation: "x"}, http.StatusUnprocessableEntity},
		{"convergence in batch", &domain.PointError{Index: 2, Err: &domain.ConvergenceError{Method: "phi2z"}}, http.StatusUnprocessableEntity},
		{"rate limited", application.ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"not ready", domain.ErrNotReady, http.StatusServiceUnavailable},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	s := newTestServer(t, false)
	rr := httptest.NewRecorder()

	s.writeJSON(rr, http.StatusOK, map[string]interface{}{"point": []float64{math.NaN(), 0}})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
	if body := decode(t, rr); body["error"] != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestBoolToStatus(t *testing.T) {
	if boolToStatus(true) != "ok" || boolToStatus(false) != "unhealthy" {
		t.Error("unexpected status strings")
	}
}
