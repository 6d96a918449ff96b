package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jobrunner/meridian/internal/domain"
	"github.com/jobrunner/meridian/internal/ports/input"
	"github.com/jobrunner/meridian/internal/ports/output"
	"github.com/jobrunner/meridian/internal/transform"
)

// chunkSize is the number of points transformed between cancellation checks.
const chunkSize = 1024

// TransformService moves points between coordinate systems known to the registry.
// Planned pipelines are cached per (source, target) pair until the registry changes.
type TransformService struct {
	registry  input.CatalogRegistry
	factory   *transform.Factory
	cache     *lru.Cache[uint64, cachedPipeline]
	metrics   output.MetricsCollector
	logger    *slog.Logger
	maxPoints int
	timeout   time.Duration

	// mu orders cache inserts against Invalidate. generation counts
	// invalidations; a pipeline planned across one is not cached.
	mu         sync.Mutex
	generation uint64
}

type cachedPipeline struct {
	source, target int
	ct             *transform.CoordinateTransformation
}

// TransformServiceConfig holds configuration for the transform service.
type TransformServiceConfig struct {
	CacheSize int
	MaxPoints int
	Timeout   time.Duration
}

// NewTransformService creates a new transform service. It subscribes to
// registry changes when the registry supports them.
func NewTransformService(
	registry input.CatalogRegistry,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg TransformServiceConfig,
) (*TransformService, error) {
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 256
	}
	if cfg.MaxPoints == 0 {
		cfg.MaxPoints = 10000
	}

	cache, err := lru.New[uint64, cachedPipeline](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline cache: %w", err)
	}

	s := &TransformService{
		registry:  registry,
		factory:   transform.NewFactory(),
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		maxPoints: cfg.MaxPoints,
		timeout:   cfg.Timeout,
	}

	if n, ok := registry.(interface{ OnChange(func()) }); ok {
		n.OnChange(s.Invalidate)
	}
	return s, nil
}

// Invalidate drops every cached pipeline.
func (s *TransformService) Invalidate() {
	s.mu.Lock()
	s.generation++
	s.cache.Purge()
	s.mu.Unlock()
	s.logger.Debug("transformation cache purged")
}

// Transform moves every point of the request from the source to the target system.
// The first point that fails aborts the request.
func (s *TransformService) Transform(ctx context.Context, req domain.TransformRequest) (*domain.TransformResponse, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(req.Points) > s.maxPoints {
		return nil, fmt.Errorf("%w: %d points, limit is %d", domain.ErrTooManyPoints, len(req.Points), s.maxPoints)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ct, cached, err := s.pipeline(ctx, req.SourceSRID, req.TargetSRID)
	if err != nil {
		s.metrics.IncTransformCount(req.SourceSRID, req.TargetSRID, false)
		return nil, err
	}

	points, err := s.transformPoints(ctx, ct, req.Points)
	duration := time.Since(start)
	s.metrics.ObserveTransformDuration(req.SourceSRID, req.TargetSRID, duration)
	if err != nil {
		s.metrics.IncTransformCount(req.SourceSRID, req.TargetSRID, false)
		s.logger.Debug("transformation failed",
			"from", req.SourceSRID,
			"to", req.TargetSRID,
			"error", err,
		)
		return nil, err
	}
	s.metrics.IncTransformCount(req.SourceSRID, req.TargetSRID, true)
	s.metrics.AddPointsTransformed(len(points))

	return &domain.TransformResponse{
		SourceSRID:     req.SourceSRID,
		TargetSRID:     req.TargetSRID,
		Points:         points,
		Operation:      summarize(ct, cached),
		ProcessingTime: duration,
	}, nil
}

// transformPoints runs the pipeline in chunks so a cancelled request stops early.
func (s *TransformService) transformPoints(ctx context.Context, ct *transform.CoordinateTransformation, points []domain.Point) ([]domain.Point, error) {
	out := make([]domain.Point, 0, len(points))
	for offset := 0; offset < len(points); offset += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := offset + chunkSize
		if end > len(points) {
			end = len(points)
		}

		chunk, err := ct.Transform.TransformMany(points[offset:end])
		if err != nil {
			var pe *domain.PointError
			if errors.As(err, &pe) {
				return nil, &domain.PointError{Index: offset + pe.Index, Err: pe.Err}
			}
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// Describe returns the pipeline between two systems without transforming anything.
func (s *TransformService) Describe(ctx context.Context, sourceSRID, targetSRID int) (*domain.OperationSummary, error) {
	ct, cached, err := s.pipeline(ctx, sourceSRID, targetSRID)
	if err != nil {
		return nil, err
	}
	summary := summarize(ct, cached)
	return &summary, nil
}

// pipeline returns the cached transformation for the pair or plans a new one.
func (s *TransformService) pipeline(ctx context.Context, sourceSRID, targetSRID int) (*transform.CoordinateTransformation, bool, error) {
	key := pairKey(sourceSRID, targetSRID)
	if p, ok := s.cache.Get(key); ok && p.source == sourceSRID && p.target == targetSRID {
		s.metrics.IncCacheLookup(true)
		return p.ct, true, nil
	}
	s.metrics.IncCacheLookup(false)

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	source, err := s.registry.Lookup(ctx, sourceSRID)
	if err != nil {
		return nil, false, err
	}
	target, err := s.registry.Lookup(ctx, targetSRID)
	if err != nil {
		return nil, false, err
	}

	ct, err := s.factory.CreateFromCoordinateSystems(source, target)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	stale := generation != s.generation
	if !stale {
		s.cache.Add(key, cachedPipeline{source: sourceSRID, target: targetSRID, ct: ct})
	}
	s.mu.Unlock()
	if stale {
		s.logger.Debug("registry changed while planning, pipeline not cached", "from", sourceSRID, "to", targetSRID)
		return ct, false, nil
	}

	s.logger.Debug("transformation planned",
		"from", sourceSRID,
		"to", targetSRID,
		"type", ct.Type.String(),
		"steps", len(ct.Steps()),
	)
	return ct, false, nil
}

// CacheLen returns the number of cached pipelines.
func (s *TransformService) CacheLen() int {
	return s.cache.Len()
}

func pairKey(sourceSRID, targetSRID int) uint64 {
	return xxhash.Sum64String(strconv.Itoa(sourceSRID) + ":" + strconv.Itoa(targetSRID))
}

func summarize(ct *transform.CoordinateTransformation, cached bool) domain.OperationSummary {
	return domain.OperationSummary{
		Name:   ct.Name,
		Type:   ct.Type.String(),
		Steps:  ct.Steps(),
		Cached: cached,
	}
}
