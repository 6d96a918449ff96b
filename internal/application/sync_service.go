package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrRateLimited is returned when the sync API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// DefaultSyncCooldown is the minimum gap between two API triggered syncs.
const DefaultSyncCooldown = 30 * time.Second

// SyncResult contains the result of a sync operation.
type SyncResult struct {
	CatalogsAdded   int       `json:"catalogs_added"`
	CatalogsRemoved int       `json:"catalogs_removed"`
	CatalogsTotal   int       `json:"catalogs_total"`
	SyncedAt        time.Time `json:"synced_at"`
	NextScheduledAt time.Time `json:"next_scheduled_at,omitempty"`
}

// SyncStatus reports the scheduler state.
type SyncStatus struct {
	Interval        time.Duration `json:"-"`
	LastSyncAt      time.Time     `json:"last_sync_at,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
	NextScheduledAt time.Time     `json:"next_scheduled_at,omitempty"`
}

// SyncService keeps the registry in step with remote catalog storage, on a
// ticker and on demand.
type SyncService struct {
	registry *CatalogRegistry
	interval time.Duration
	cooldown time.Duration
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Serialises sync runs from the ticker and the API.
	runMu sync.Mutex

	mu          sync.Mutex
	lastTrigger time.Time
	lastSync    time.Time
	lastErr     error
	nextSync    time.Time
}

// NewSyncService creates a new sync service. A zero cooldown selects DefaultSyncCooldown.
func NewSyncService(registry *CatalogRegistry, interval, cooldown time.Duration, logger *slog.Logger) *SyncService {
	if cooldown <= 0 {
		cooldown = DefaultSyncCooldown
	}
	return &SyncService{
		registry: registry,
		interval: interval,
		cooldown: cooldown,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the scheduler until Stop is called or ctx is cancelled. A
// non-positive interval leaves only on-demand syncs.
func (s *SyncService) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("scheduled sync disabled", "cooldown", s.cooldown)
		return
	}
	s.logger.Info("starting sync service", "interval", s.interval, "cooldown", s.cooldown)

	s.wg.Add(1)
	go s.loop(ctx)
}

func (s *SyncService) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.schedule()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync service stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("sync service stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled sync triggered")
			if _, err := s.run(ctx); err != nil {
				s.logger.Error("scheduled sync failed", "error", err)
			}
			s.schedule()
		}
	}
}

// Stop stops the scheduler and waits for a running sync to finish. It is safe to call twice.
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping sync service")
		close(s.stopCh)
	})
	s.wg.Wait()
}

// TriggerSync runs a sync now. Calls closer together than the cooldown get ErrRateLimited.
func (s *SyncService) TriggerSync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	if !s.lastTrigger.IsZero() && time.Since(s.lastTrigger) < s.cooldown {
		s.mu.Unlock()
		return SyncResult{}, ErrRateLimited
	}
	s.lastTrigger = time.Now()
	s.mu.Unlock()

	return s.run(ctx)
}

func (s *SyncService) run(ctx context.Context) (SyncResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	stats, err := s.registry.Sync(ctx)
	now := time.Now()

	s.mu.Lock()
	s.lastSync, s.lastErr = now, err
	next := s.nextSync
	s.mu.Unlock()

	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{
		CatalogsAdded:   stats.Added,
		CatalogsRemoved: stats.Removed,
		CatalogsTotal:   s.registry.CatalogCount(),
		SyncedAt:        now,
		NextScheduledAt: next,
	}, nil
}

func (s *SyncService) schedule() {
	s.mu.Lock()
	s.nextSync = time.Now().Add(s.interval)
	s.mu.Unlock()
}

// Status reports when the last sync ran and when the next one is due.
func (s *SyncService) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SyncStatus{Interval: s.interval, LastSyncAt: s.lastSync, NextScheduledAt: s.nextSync}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Interval returns the sync interval.
func (s *SyncService) Interval() time.Duration {
	return s.interval
}
