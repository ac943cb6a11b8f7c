package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v9"
)

// Access modes supported by the registry.
const (
	AccessModeGranular = "granular"
	AccessModeLegacy   = "legacy"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Registry RegistryConfig
	OIDC     OIDCConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"DB_DSN" envDefault:"data/shell-registry.db"`
}

// RegistryConfig holds the registry's identity and paging behavior.
type RegistryConfig struct {
	// OwningTenantID is the single tenant with unrestricted visibility and
	// write access.
	OwningTenantID string `env:"OWNING_TENANT_ID"`
	// AccessMode selects granular (rule-based) or legacy (marker-based)
	// visibility filtering.
	AccessMode string `env:"ACCESS_MODE" envDefault:"granular"`
	// WildcardMarker is the sentinel tenant granting limited public
	// visibility.
	WildcardMarker string `env:"WILDCARD_MARKER" envDefault:"PUBLIC_READABLE"`
	// WildcardAllowedTypes is the comma-separated allow-list of attribute
	// names the wildcard marker may expose.
	WildcardAllowedTypes string `env:"WILDCARD_ALLOWED_TYPES" envDefault:"manufacturerPartId,assetLifecyclePhase"`
	// FetchSize bounds how many rows a filtered listing pulls from the store
	// per round-trip.
	FetchSize       int `env:"FETCH_SIZE" envDefault:"500"`
	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" envDefault:"100"`
	MaxPageSize     int `env:"MAX_PAGE_SIZE" envDefault:"1000"`
	// TenantIDHeader is the trusted header carrying the requester tenant id
	// when OIDC is disabled (deployment behind an authenticating gateway).
	TenantIDHeader string `env:"TENANT_ID_HEADER" envDefault:"Edc-Bpn"`
}

// OIDCConfig holds bearer-token verification configuration.
type OIDCConfig struct {
	Enabled     bool   `env:"OIDC_ENABLED" envDefault:"false"`
	IssuerURL   string `env:"OIDC_ISSUER_URL"`
	ClientID    string `env:"OIDC_CLIENT_ID"`
	TenantClaim string `env:"OIDC_TENANT_CLAIM" envDefault:"bpn"`
}

// GetWildcardAllowedTypes returns the allow-list as a slice.
func (c *RegistryConfig) GetWildcardAllowedTypes() []string {
	if c.WildcardAllowedTypes == "" {
		return nil
	}
	types := strings.Split(c.WildcardAllowedTypes, ",")
	for i := range types {
		types[i] = strings.TrimSpace(types[i])
	}
	return types
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Registry); err != nil {
		return nil, fmt.Errorf("parsing registry config: %w", err)
	}
	if err := env.Parse(&cfg.OIDC); err != nil {
		return nil, fmt.Errorf("parsing oidc config: %w", err)
	}

	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Registry.OwningTenantID == "" {
		return fmt.Errorf("OWNING_TENANT_ID is required")
	}
	if c.Registry.AccessMode != AccessModeGranular && c.Registry.AccessMode != AccessModeLegacy {
		return fmt.Errorf("ACCESS_MODE must be %q or %q", AccessModeGranular, AccessModeLegacy)
	}
	if c.Registry.FetchSize <= 0 {
		return fmt.Errorf("FETCH_SIZE must be positive")
	}
	if c.Registry.DefaultPageSize <= 0 || c.Registry.MaxPageSize < c.Registry.DefaultPageSize {
		return fmt.Errorf("page size configuration is inconsistent")
	}
	if c.OIDC.Enabled {
		if c.OIDC.IssuerURL == "" {
			return fmt.Errorf("OIDC_ISSUER_URL is required when OIDC is enabled")
		}
		if c.OIDC.ClientID == "" {
			return fmt.Errorf("OIDC_CLIENT_ID is required when OIDC is enabled")
		}
	}
	return nil
}
