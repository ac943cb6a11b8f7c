package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twinforge/shell-registry/internal/access"
	"github.com/twinforge/shell-registry/internal/api"
	"github.com/twinforge/shell-registry/internal/api/middleware"
	"github.com/twinforge/shell-registry/internal/auth"
	"github.com/twinforge/shell-registry/internal/config"
	"github.com/twinforge/shell-registry/internal/service"
	"github.com/twinforge/shell-registry/internal/storage/sql"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll("data", 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// Initialize storage
	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Select the access mode
	accessCfg := access.Config{
		OwningTenantID:       cfg.Registry.OwningTenantID,
		WildcardMarker:       cfg.Registry.WildcardMarker,
		WildcardAllowedTypes: cfg.Registry.GetWildcardAllowedTypes(),
	}
	var accessHandler access.Handler
	if cfg.Registry.AccessMode == config.AccessModeGranular {
		accessHandler = access.NewEngine(service.NewRuleSource(store, cfg.Registry.WildcardMarker), accessCfg)
	} else {
		accessHandler = access.NewLegacyHandler(accessCfg)
	}
	log.Printf("Access mode: %s", cfg.Registry.AccessMode)

	// Initialize services
	shellService := service.NewShellService(
		store,
		accessHandler,
		cfg.Registry.OwningTenantID,
		cfg.Registry.FetchSize,
		cfg.Registry.DefaultPageSize,
		cfg.Registry.MaxPageSize,
	)
	ruleService := service.NewRuleService(store, cfg.Registry.OwningTenantID)

	// Initialize token verification when enabled
	var verifier middleware.TokenVerifier
	if cfg.OIDC.Enabled {
		v, err := auth.NewTenantVerifier(context.Background(), cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.TenantClaim)
		if err != nil {
			log.Fatalf("Failed to initialize OIDC verifier: %v", err)
		}
		verifier = v
	} else {
		log.Printf("OIDC disabled, trusting tenant header %q", cfg.Registry.TenantIDHeader)
	}

	// Create router
	router := api.NewRouter(shellService, ruleService, verifier, cfg.Registry.TenantIDHeader)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting shell registry on http://%s", cfg.Server.Addr())

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
