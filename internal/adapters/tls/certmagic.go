// Package tls obtains and renews certificates for the HTTP API with CertMagic.
package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caddyserver/certmagic"
	"github.com/libdns/azure"
)

// Config holds TLS configuration.
type Config struct {
	Domains  []string
	Email    string
	CacheDir string
	Staging  bool // Use Let's Encrypt staging environment
	DNS      DNSConfig
}

// DNSConfig holds Azure DNS provider configuration for DNS-01 challenges.
// When SubscriptionID is empty the HTTP-01 and TLS-ALPN-01 challenges are
// used instead.
type DNSConfig struct {
	SubscriptionID    string
	ResourceGroupName string
	ClientID          string // User Assigned Managed Identity client ID (optional)
}

// Manager configures CertMagic for the service domains.
type Manager struct {
	domains []string
	dns01   bool
	logger  *slog.Logger
}

// Validate checks that cfg can be used to request certificates.
func (c Config) Validate() error {
	if len(c.Domains) == 0 {
		return errors.New("TLS enabled but no domains specified")
	}
	if c.Email == "" {
		return errors.New("TLS enabled but no email specified")
	}
	if c.DNS.SubscriptionID != "" && c.DNS.ResourceGroupName == "" {
		return errors.New("azure DNS challenge requires a resource group")
	}
	return nil
}

// NewManager applies cfg to the CertMagic defaults.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = cfg.Email
	if cfg.Staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}
	if cfg.CacheDir != "" {
		certmagic.Default.Storage = &certmagic.FileStorage{Path: cfg.CacheDir}
	}

	solver := dnsSolver(cfg.DNS)
	if solver != nil {
		certmagic.DefaultACME.DNS01Solver = solver
	}

	return &Manager{
		domains: cfg.Domains,
		dns01:   solver != nil,
		logger:  logger,
	}, nil
}

// dnsSolver returns an Azure DNS-01 solver, or nil when none is configured.
func dnsSolver(cfg DNSConfig) *certmagic.DNS01Solver {
	if cfg.SubscriptionID == "" {
		return nil
	}
	return &certmagic.DNS01Solver{
		DNSManager: certmagic.DNSManager{
			DNSProvider: &azure.Provider{
				SubscriptionId:    cfg.SubscriptionID,
				ResourceGroupName: cfg.ResourceGroupName,
				ClientId:          cfg.ClientID, // Empty = System Assigned Managed Identity
			},
		},
	}
}

// TLSConfig obtains certificates for the configured domains and returns a
// tls.Config that keeps them renewed.
func (m *Manager) TLSConfig(ctx context.Context) (*tls.Config, error) {
	m.logger.Info("obtaining certificates", "domains", m.domains, "dns01", m.dns01)

	if err := certmagic.ManageSync(ctx, m.domains); err != nil {
		return nil, fmt.Errorf("managing certificates: %w", err)
	}

	magic := certmagic.NewDefault()
	tlsConfig := magic.TLSConfig()
	tlsConfig.NextProtos = append([]string{"h2", "http/1.1"}, tlsConfig.NextProtos...)

	m.logger.Info("certificates obtained successfully")
	return tlsConfig, nil
}

// Domains returns the managed domain names.
func (m *Manager) Domains() []string {
	return m.domains
}
