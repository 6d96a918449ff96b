// Package http provides the HTTP server and handlers.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/meridian/internal/application"
	"github.com/jobrunner/meridian/internal/config"
	"github.com/jobrunner/meridian/internal/ports/input"
)

// Server wraps the HTTP server with application handlers.
type Server struct {
	server      *http.Server
	router      *mux.Router
	transforms  input.TransformService
	registry    input.CatalogRegistry
	health      input.HealthChecker
	syncService *application.SyncService
	metrics     mux.MiddlewareFunc
	logger      *slog.Logger
	config      config.ServerConfig
}

// NewServer creates a new HTTP server. syncService and metrics may be nil.
func NewServer(
	cfg config.ServerConfig,
	transforms input.TransformService,
	registry input.CatalogRegistry,
	health input.HealthChecker,
	syncService *application.SyncService,
	metrics mux.MiddlewareFunc,
	logger *slog.Logger,
) *Server {
	s := &Server{
		transforms:  transforms,
		registry:    registry,
		health:      health,
		syncService: syncService,
		metrics:     metrics,
		logger:      logger,
		config:      cfg,
	}

	s.router = s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics)
	}

	// Add CORS middleware if configured
	if s.config.CORS.Enabled() {
		r.Use(s.corsMiddleware)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Transformation endpoints
	api.HandleFunc("/transform", s.handleTransformPoint).Methods(http.MethodGet)
	api.HandleFunc("/transform", s.handleTransformBatch).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/transform/describe", s.handleDescribe).Methods(http.MethodGet)

	// Coordinate system endpoints
	api.HandleFunc("/crs", s.handleListCRS).Methods(http.MethodGet)
	api.HandleFunc("/crs/{srid:[0-9]+}", s.handleGetCRS).Methods(http.MethodGet)

	// Catalog management endpoints
	api.HandleFunc("/catalogs", s.handleListCatalogs).Methods(http.MethodGet)
	api.HandleFunc("/catalogs/{catalogId}", s.handleGetCatalog).Methods(http.MethodGet)

	// Sync endpoints (only if sync service is configured)
	if s.syncService != nil {
		api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
		api.HandleFunc("/sync", s.handleSyncStatus).Methods(http.MethodGet)
	}

	// OpenAPI spec
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "address", s.config.Address())
	return s.server.ListenAndServe()
}

// StartTLS starts the HTTPS server with the given certificate configuration.
func (s *Server) StartTLS(tlsConfig *tls.Config) error {
	s.logger.Info("starting HTTPS server", "address", s.config.Address())
	s.server.TLSConfig = tlsConfig
	return s.server.ListenAndServeTLS("", "")
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
