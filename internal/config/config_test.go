package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadTestConfig(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return Load(path)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadTestConfig(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.Address() != "0.0.0.0:8080" {
		t.Errorf("unexpected server address %s", cfg.Server.Address())
	}
	if cfg.Storage.Type != "local" || cfg.Storage.LocalPath != "./catalogs" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Transform.CacheSize != 256 || cfg.Transform.MaxPoints != 10000 || cfg.Transform.Timeout != 30*time.Second {
		t.Errorf("unexpected transform config %+v", cfg.Transform)
	}
	if cfg.Sync.Interval != 0 || cfg.Sync.Cooldown != 30*time.Second {
		t.Errorf("unexpected sync config %+v", cfg.Sync)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Port != 9090 || cfg.Metrics.Path != "/metrics" {
		t.Errorf("unexpected metrics config %+v", cfg.Metrics)
	}
	if cfg.Server.CORS.Enabled() {
		t.Error("CORS should be disabled by default")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Setenv("MERIDIAN_TRANSFORM_MAX_POINTS", "42")

	cfg, err := loadTestConfig(t, `
server:
  port: 8443
  cors:
    allowed_origins: ["https://maps.example.com", "*.example.org"]
transform:
  cache_size: 16
sync:
  interval: 15m
storage:
  type: s3
  local_path: /var/lib/meridian
  s3:
    bucket: catalogs
    region: eu-central-1
tls:
  enabled: true
  domains: [crs.example.com]
  email: ops@example.com
  dns:
    subscription_id: sub
    resource_group_name: rg
`)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8443 {
		t.Errorf("port = %d, want 8443", cfg.Server.Port)
	}
	if !cfg.Server.CORS.Enabled() || len(cfg.Server.CORS.AllowedOrigins) != 2 {
		t.Errorf("unexpected CORS origins %v", cfg.Server.CORS.AllowedOrigins)
	}
	if cfg.Transform.CacheSize != 16 {
		t.Errorf("cache size = %d, want 16", cfg.Transform.CacheSize)
	}
	if cfg.Transform.MaxPoints != 42 {
		t.Errorf("max points = %d, want 42 from the environment", cfg.Transform.MaxPoints)
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("sync interval = %s, want 15m", cfg.Sync.Interval)
	}
	if cfg.Storage.S3.Bucket != "catalogs" || cfg.Storage.S3.Region != "eu-central-1" {
		t.Errorf("unexpected S3 config %+v", cfg.Storage.S3)
	}
	if cfg.TLS.DNS.ResourceGroupName != "rg" {
		t.Errorf("unexpected TLS DNS config %+v", cfg.TLS.DNS)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := loadTestConfig(t, "server: [unclosed")
	if err == nil || !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("expected a read error, got %v", err)
	}
}

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: 8080},
		Storage:   StorageConfig{Type: "local", LocalPath: "./catalogs"},
		Transform: TransformConfig{CacheSize: 1, MaxPoints: 1},
		Metrics:   MetricsConfig{Enabled: true, Port: 9090, Path: "/metrics"},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"metrics port collision", func(c *Config) { c.Metrics.Port = 8080 }, "collides"},
		{"metrics disabled ignores port", func(c *Config) { c.Metrics = MetricsConfig{} }, ""},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics path"},
		{"cache size", func(c *Config) { c.Transform.CacheSize = 0 }, "cache size"},
		{"max points", func(c *Config) { c.Transform.MaxPoints = -1 }, "max points"},
		{"negative timeout", func(c *Config) { c.Transform.Timeout = -time.Second }, "timeout"},
		{"negative sync interval", func(c *Config) { c.Sync.Interval = -time.Second }, "sync interval"},
		{"tls without domains", func(c *Config) { c.TLS = TLSConfig{Enabled: true, Email: "a@b.c"} }, "no domains"},
		{"tls without email", func(c *Config) { c.TLS = TLSConfig{Enabled: true, Domains: []string{"x"}} }, "no email"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"storage type", func(c *Config) { c.Storage.Type = "ftp" }, "unknown storage type"},
		{"storage path", func(c *Config) { c.Storage.LocalPath = "" }, "local storage path"},
		{"s3 bucket", func(c *Config) { c.Storage.Type = "s3" }, "S3 bucket"},
		{"s3 region", func(c *Config) { c.Storage.Type = "s3"; c.Storage.S3.Bucket = "b" }, "S3 region"},
		{"azure container", func(c *Config) { c.Storage.Type = "azure" }, "azure container"},
		{"azure account", func(c *Config) { c.Storage.Type = "azure"; c.Storage.Azure.Container = "c" }, "azure account"},
		{"azure connection string", func(c *Config) {
			c.Storage.Type = "azure"
			c.Storage.Azure = AzureConfig{Container: "c", ConnectionString: "cs"}
		}, ""},
		{"http base url", func(c *Config) { c.Storage.Type = "http" }, "HTTP base URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
