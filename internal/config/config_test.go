package config

import (
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: 8080},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "data/test.db"},
		Registry: RegistryConfig{
			OwningTenantID:  "BPNL000000000OWN",
			AccessMode:      AccessModeGranular,
			WildcardMarker:  "PUBLIC_READABLE",
			FetchSize:       500,
			DefaultPageSize: 100,
			MaxPageSize:     1000,
			TenantIDHeader:  "Edc-Bpn",
		},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing owning tenant", func(c *Config) { c.Registry.OwningTenantID = "" }},
		{"unknown access mode", func(c *Config) { c.Registry.AccessMode = "permissive" }},
		{"zero fetch size", func(c *Config) { c.Registry.FetchSize = 0 }},
		{"zero default page size", func(c *Config) { c.Registry.DefaultPageSize = 0 }},
		{"max below default", func(c *Config) { c.Registry.MaxPageSize = 10 }},
		{"oidc without issuer", func(c *Config) { c.OIDC.Enabled = true; c.OIDC.ClientID = "x" }},
		{"oidc without client id", func(c *Config) { c.OIDC.Enabled = true; c.OIDC.IssuerURL = "https://idp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}

func TestGetWildcardAllowedTypes(t *testing.T) {
	cfg := RegistryConfig{WildcardAllowedTypes: "manufacturerPartId, assetLifecyclePhase"}
	types := cfg.GetWildcardAllowedTypes()
	if len(types) != 2 || types[0] != "manufacturerPartId" || types[1] != "assetLifecyclePhase" {
		t.Errorf("want trimmed two-entry list, got %v", types)
	}

	empty := RegistryConfig{}
	if got := empty.GetWildcardAllowedTypes(); got != nil {
		t.Errorf("empty config should yield nil, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("want default addr 0.0.0.0:8080, got %s", cfg.Server.Addr())
	}
	if cfg.Registry.AccessMode != AccessModeGranular {
		t.Errorf("want default granular mode, got %s", cfg.Registry.AccessMode)
	}
	if cfg.Registry.WildcardMarker != "PUBLIC_READABLE" {
		t.Errorf("want default wildcard marker, got %s", cfg.Registry.WildcardMarker)
	}
}
