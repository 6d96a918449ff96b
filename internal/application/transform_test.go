package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/jobrunner/meridian/internal/domain"
)

func newTestTransformService(t *testing.T, registry *CatalogRegistry, metrics *mockMetrics, cfg TransformServiceConfig) *TransformService {
	t.Helper()
	s, err := NewTransformService(registry, metrics, testLogger(), cfg)
	if err != nil {
		t.Fatalf("NewTransformService failed: %v", err)
	}
	return s
}

func TestTransformServiceTransform(t *testing.T) {
	metrics := newMockMetrics()
	s := newTestTransformService(t, newTestRegistry(), metrics, TransformServiceConfig{})
	ctx := context.Background()

	req := domain.TransformRequest{
		SourceSRID: 4326,
		TargetSRID: 32632,
		Points:     []domain.Point{{9, 0}, {9, 0, 12.5}},
	}

	resp, err := s.Transform(ctx, req)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(resp.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(resp.Points))
	}
	if p := resp.Points[0]; math.Abs(p[0]-500000) > 1e-6 || math.Abs(p[1]) > 1e-6 {
		t.Errorf("expected (500000, 0), got %v", p)
	}
	if p := resp.Points[1]; len(p) != 3 || p[2] != 12.5 {
		t.Errorf("expected height to pass through, got %v", p)
	}
	if resp.Operation.Type != "conversion" || resp.Operation.Cached {
		t.Errorf("unexpected operation %+v", resp.Operation)
	}
	if len(resp.Operation.Steps) != 1 || resp.Operation.Steps[0] != "Transverse_Mercator" {
		t.Errorf("expected a single Transverse_Mercator step, got %v", resp.Operation.Steps)
	}

	resp, err = s.Transform(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Operation.Cached {
		t.Error("expected second request to use the cached pipeline")
	}

	if metrics.hits != 1 || metrics.misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d and %d", metrics.hits, metrics.misses)
	}
	if metrics.transforms[true] != 2 || metrics.points != 4 {
		t.Errorf("expected 2 successful requests and 4 points, got %d and %d", metrics.transforms[true], metrics.points)
	}
}

func TestTransformServiceDatumShift(t *testing.T) {
	s := newTestTransformService(t, newTestRegistry(), newMockMetrics(), TransformServiceConfig{})

	resp, err := s.Transform(context.Background(), domain.TransformRequest{
		SourceSRID: 4230,
		TargetSRID: 4326,
		Points:     []domain.Point{{10, 50}},
	})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	got := resp.Points[0]
	if math.Abs(got[0]-9.998864620) > 1e-6 || math.Abs(got[1]-49.999198592) > 1e-6 {
		t.Errorf("expected (9.998864620, 49.999198592), got %v", got)
	}
	if resp.Operation.Type != "transformation" {
		t.Errorf("expected transformation, got %s", resp.Operation.Type)
	}
}

func TestTransformServiceErrors(t *testing.T) {
	s := newTestTransformService(t, newTestRegistry(), newMockMetrics(), TransformServiceConfig{MaxPoints: 2})
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.TransformRequest
		want error
	}{
		{"unknown source", domain.TransformRequest{SourceSRID: 999999, TargetSRID: 4326, Points: []domain.Point{{0, 0}}}, domain.ErrCRSNotFound},
		{"unknown target", domain.TransformRequest{SourceSRID: 4326, TargetSRID: 999999, Points: []domain.Point{{0, 0}}}, domain.ErrCRSNotFound},
		{"no points", domain.TransformRequest{SourceSRID: 4326, TargetSRID: 4326}, domain.ErrInvalidInput},
		{"too many points", domain.TransformRequest{SourceSRID: 4326, TargetSRID: 4326, Points: []domain.Point{{0, 0}, {0, 0}, {0, 0}}}, domain.ErrTooManyPoints},
		{"unsupported pairing", domain.TransformRequest{SourceSRID: 32632, TargetSRID: 4978, Points: []domain.Point{{0, 0}}}, domain.ErrUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Transform(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTransformServicePointErrorIndex(t *testing.T) {
	metrics := newMockMetrics()
	s := newTestTransformService(t, newTestRegistry(), metrics, TransformServiceConfig{})

	// The failing point sits in the second chunk.
	points := make([]domain.Point, chunkSize+300)
	for i := range points {
		points[i] = domain.Point{0, 45}
	}
	bad := chunkSize + 176
	points[bad] = domain.Point{0, 90}

	_, err := s.Transform(context.Background(), domain.TransformRequest{SourceSRID: 4326, TargetSRID: 3395, Points: points})

	var pe *domain.PointError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PointError, got %v", err)
	}
	if pe.Index != bad {
		t.Errorf("expected index %d, got %d", bad, pe.Index)
	}
	if !errors.Is(err, domain.ErrConvergence) {
		t.Errorf("expected a convergence error, got %v", err)
	}
	if metrics.transforms[false] != 1 || metrics.points != 0 {
		t.Errorf("expected one failed request and no points, got %d and %d", metrics.transforms[false], metrics.points)
	}
}

func TestTransformServiceCancelled(t *testing.T) {
	s := newTestTransformService(t, newTestRegistry(), newMockMetrics(), TransformServiceConfig{Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Transform(ctx, domain.TransformRequest{SourceSRID: 4326, TargetSRID: 4326, Points: []domain.Point{{1, 2}}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestTransformServiceInvalidatesOnRegistryChange(t *testing.T) {
	repo := &mockRepository{
		definitions: map[string][]domain.Definition{
			"local": {catalogDefinition("local", 900001, mustUTM(t, 33, true))},
		},
	}
	registry := NewCatalogRegistry(repo, &mockStorage{}, newMockMetrics(), testLogger(), t.TempDir())
	s := newTestTransformService(t, registry, newMockMetrics(), TransformServiceConfig{})
	ctx := context.Background()

	if _, err := s.Describe(ctx, 4326, 32633); err != nil {
		t.Fatal(err)
	}
	if s.CacheLen() != 1 {
		t.Fatalf("expected 1 cached pipeline, got %d", s.CacheLen())
	}

	if _, err := s.Describe(ctx, 4326, 900001); !errors.Is(err, domain.ErrCRSNotFound) {
		t.Fatalf("expected ErrCRSNotFound before loading, got %v", err)
	}

	if err := registry.LoadCatalog(ctx, "/data/local.yaml"); err != nil {
		t.Fatal(err)
	}
	if s.CacheLen() != 0 {
		t.Errorf("expected cache purged after load, got %d entries", s.CacheLen())
	}

	summary, err := s.Describe(ctx, 4326, 900001)
	if err != nil {
		t.Fatalf("Describe failed after load: %v", err)
	}
	if summary.Cached {
		t.Error("expected a freshly planned pipeline")
	}
}

func TestTransformServiceCacheEviction(t *testing.T) {
	s := newTestTransformService(t, newTestRegistry(), newMockMetrics(), TransformServiceConfig{CacheSize: 2})
	ctx := context.Background()

	for _, target := range []int{32631, 32632, 32633} {
		if _, err := s.Describe(ctx, 4326, target); err != nil {
			t.Fatal(err)
		}
	}
	if s.CacheLen() != 2 {
		t.Errorf("expected cache bounded at 2, got %d", s.CacheLen())
	}
}

func TestPairKeyOrdered(t *testing.T) {
	if pairKey(4326, 32632) == pairKey(32632, 4326) {
		t.Error("expected direction to be part of the key")
	}
	if pairKey(4326, 32632) != pairKey(4326, 32632) {
		t.Error("expected stable keys")
	}
}

// changingRegistry runs onLookup once, between the lookup and the planning
// of a pipeline, the way a catalog reload can land mid-request.
type changingRegistry struct {
	*CatalogRegistry
	onLookup func()
}

func (r *changingRegistry) Lookup(ctx context.Context, srid int) (domain.CoordinateSystem, error) {
	cs, err := r.CatalogRegistry.Lookup(ctx, srid)
	if r.onLookup != nil {
		fn := r.onLookup
		r.onLookup = nil
		fn()
	}
	return cs, err
}

func TestTransformServiceSkipsCachingAcrossInvalidation(t *testing.T) {
	registry := &changingRegistry{CatalogRegistry: newTestRegistry()}
	s, err := NewTransformService(registry, newMockMetrics(), testLogger(), TransformServiceConfig{})
	if err != nil {
		t.Fatalf("NewTransformService failed: %v", err)
	}
	registry.onLookup = s.Invalidate
	ctx := context.Background()

	summary, err := s.Describe(ctx, 4326, 32633)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if summary.Cached {
		t.Error("expected a freshly planned pipeline")
	}
	if s.CacheLen() != 0 {
		t.Fatalf("expected the pipeline planned across an invalidation to stay uncached, got %d entries", s.CacheLen())
	}

	if _, err := s.Describe(ctx, 4326, 32633); err != nil {
		t.Fatal(err)
	}
	if s.CacheLen() != 1 {
		t.Errorf("expected 1 cached pipeline after a quiet request, got %d", s.CacheLen())
	}
	summary, err = s.Describe(ctx, 4326, 32633)
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Cached {
		t.Error("expected the third request to hit the cache")
	}
}
