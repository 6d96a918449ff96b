package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/meridian/internal/app"
	"github.com/jobrunner/meridian/internal/config"
)

// flagKeys maps command line flags to configuration keys. A flag is bound
// only on the command that defines it.
var flagKeys = map[string]string{
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"storage-type":  "storage.type",
	"storage-path":  "storage.local_path",
	"host":          "server.host",
	"port":          "server.port",
	"tls":           "tls.enabled",
	"tls-domains":   "tls.domains",
	"tls-email":     "tls.email",
	"cors":          "server.cors.allowed_origins",
	"sync-interval": "sync.interval",
	"watch":         "watch.enabled",
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "meridian",
		Short: "Meridian - coordinate transformation service",
		Long: `Meridian transforms coordinates between coordinate reference systems.

It resolves SRIDs against built-in systems, WGS 84 UTM zones and catalogs of
WKT definitions (GeoPackage, SpatiaLite or YAML files) and serves a REST API
for single point and batch transformations.

Features:
  - Geographic, projected and geocentric systems
  - Datum shifts via Bursa-Wolf parameters
  - Multiple catalog storage backends (local, AWS S3, Azure, HTTP)
  - Hot-reload of catalogs
  - TLS with automatic certificate management
  - Prometheus metrics`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(cmd)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "json", "log format (json, text)")
	root.PersistentFlags().String("storage-type", "local", "catalog storage type (local, s3, azure, http)")
	root.PersistentFlags().String("storage-path", "./catalogs", "local catalog directory")

	serve := newServeCmd(&cfgFile)
	root.RunE = serve.RunE
	addServeFlags(root)

	root.AddCommand(
		serve,
		newTransformCmd(&cfgFile),
		newCRSCmd(&cfgFile),
		newVersionCmd(),
	)
	return root
}

// bindFlags binds the flags visible to cmd to their configuration keys.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}
	return nil
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "0.0.0.0", "server host")
	cmd.Flags().Int("port", 8080, "server port")
	cmd.Flags().Bool("tls", false, "enable TLS")
	cmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
	cmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")
	cmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")
	cmd.Flags().Duration("sync-interval", 0, "interval between scheduled catalog syncs (0 disables)")
	cmd.Flags().Bool("watch", true, "reload local catalogs when files change")
}

func newServeCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), *cfgFile)
		},
	}
	addServeFlags(cmd)
	return cmd
}

func runServer(ctx context.Context, cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := app.NewLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting Meridian",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"storage_type", cfg.Storage.Type,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address())
		if err := application.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case runErr = <-serverErr:
		logger.Error("server error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return runErr
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Meridian %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Build Date: %s\n", buildDate)
		},
	}
}
