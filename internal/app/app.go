// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/meridian/internal/adapters/catalog"
	httpAdapter "github.com/jobrunner/meridian/internal/adapters/http"
	"github.com/jobrunner/meridian/internal/adapters/metrics"
	"github.com/jobrunner/meridian/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/meridian/internal/adapters/tls"
	"github.com/jobrunner/meridian/internal/adapters/watcher"
	"github.com/jobrunner/meridian/internal/application"
	"github.com/jobrunner/meridian/internal/config"
	"github.com/jobrunner/meridian/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Storage       output.ObjectStorage
	Repository    *catalog.Repository
	Registry      *application.CatalogRegistry
	Transforms    *application.TransformService
	HealthService *application.HealthService
	SyncService   *application.SyncService
	HTTPServer    *httpAdapter.Server
	TLSManager    *tlsAdapter.Manager
	Watcher       *watcher.Watcher
	Metrics       *metrics.Collector
	MetricsServer *metrics.Server
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	var metricsMiddleware mux.MiddlewareFunc
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("meridian")
		app.MetricsServer = metrics.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, app.Metrics, logger)
		metricsCollector = app.Metrics
		metricsMiddleware = app.Metrics.Middleware
	}

	store, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = store

	app.Repository = catalog.NewRepository(logger)
	app.Registry = application.NewCatalogRegistry(
		app.Repository,
		app.Storage,
		metricsCollector,
		logger,
		cfg.Storage.LocalPath,
	)

	app.Transforms, err = application.NewTransformService(
		app.Registry,
		metricsCollector,
		logger,
		application.TransformServiceConfig{
			CacheSize: cfg.Transform.CacheSize,
			MaxPoints: cfg.Transform.MaxPoints,
			Timeout:   cfg.Transform.Timeout,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("initializing transform service: %w", err)
	}

	app.HealthService = application.NewHealthService(app.Registry)
	app.SyncService = application.NewSyncService(app.Registry, cfg.Sync.Interval, cfg.Sync.Cooldown, logger)

	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		app.Transforms,
		app.Registry,
		app.HealthService,
		app.SyncService,
		metricsMiddleware,
		logger,
	)

	if cfg.TLS.Enabled {
		app.TLSManager, err = tlsAdapter.NewManager(
			tlsAdapter.Config{
				Domains:  cfg.TLS.Domains,
				Email:    cfg.TLS.Email,
				CacheDir: cfg.TLS.CacheDir,
				Staging:  cfg.TLS.Staging,
				DNS: tlsAdapter.DNSConfig{
					SubscriptionID:    cfg.TLS.DNS.SubscriptionID,
					ResourceGroupName: cfg.TLS.DNS.ResourceGroupName,
					ClientID:          cfg.TLS.DNS.ClientID,
				},
			},
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("initializing TLS: %w", err)
		}
	}

	// Hot reload only makes sense when the catalog directory is the source.
	if cfg.Watch.Enabled && output.StorageType(cfg.Storage.Type) == output.StorageTypeLocal {
		w, err := watcher.New(
			watcher.Config{
				Paths:    []string{cfg.Storage.LocalPath},
				Debounce: cfg.Watch.Debounce,
			},
			app.handleFileEvent,
			logger,
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// LoadCatalogs registers every catalog found in storage.
func (a *App) LoadCatalogs(ctx context.Context) error {
	return a.Registry.LoadAll(ctx)
}

// Start starts all application components and blocks serving the API.
func (a *App) Start(ctx context.Context) error {
	if err := a.LoadCatalogs(ctx); err != nil {
		a.Logger.Warn("failed to load catalogs", "error", err)
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	a.SyncService.Start(ctx)

	if a.MetricsServer != nil {
		go func() {
			if err := a.MetricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("metrics server error", "error", err)
			}
		}()
	}

	if a.TLSManager != nil {
		tlsConfig, err := a.TLSManager.TLSConfig(ctx)
		if err != nil {
			return err
		}
		return a.HTTPServer.StartTLS(tlsConfig)
	}
	return a.HTTPServer.Start()
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}
	a.SyncService.Stop()

	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
	}

	catalogs, _ := a.Registry.ListCatalogs(ctx)
	for _, c := range catalogs {
		if err := a.Registry.UnloadCatalog(ctx, c.ID); err != nil {
			a.Logger.Error("failed to unload catalog", "id", c.ID, "error", err)
		}
	}

	return nil
}

// handleFileEvent handles file system events for hot-reload.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		return a.Registry.LoadCatalog(ctx, event.Path)

	case watcher.OpDelete:
		catalogID := catalog.DeriveCatalogID(event.Path)
		if err := a.Registry.UnloadCatalog(ctx, catalogID); err != nil {
			a.Logger.Warn("failed to unload deleted catalog", "id", catalogID, "error", err)
		}
	}

	return nil
}

// initStorage initializes the appropriate storage adapter.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch output.StorageType(cfg.Type) {
	case output.StorageTypeLocal:
		return storage.NewLocalStorage(cfg.LocalPath), nil

	case output.StorageTypeS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case output.StorageTypeAzure:
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case output.StorageTypeHTTP:
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewLogger builds the structured logger described by cfg.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
