package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/twinforge/shell-registry/internal/api/handler"
	"github.com/twinforge/shell-registry/internal/api/middleware"
	"github.com/twinforge/shell-registry/internal/service"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(
	shells *service.ShellService,
	rules *service.RuleService,
	verifier middleware.TokenVerifier,
	tenantHeader string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging)

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes (tenant identity required, JSON Content-Type)
	r.Route("/api/v3", func(r chi.Router) {
		r.Use(middleware.ContentType)
		r.Use(middleware.Tenant(verifier, tenantHeader))

		shellHandler := handler.NewShellHandler(shells)
		r.Get("/shells", shellHandler.List)
		r.Post("/shells", shellHandler.Create)
		r.Get("/shells/{external_id}", shellHandler.Get)
		r.Delete("/shells/{external_id}", shellHandler.Delete)
		r.Post("/lookup/shells", shellHandler.Lookup)

		ruleHandler := handler.NewRuleHandler(rules)
		r.Post("/rules", ruleHandler.Create)
		r.Get("/rules", ruleHandler.List)
		r.Get("/rules/{id}", ruleHandler.Get)
		r.Put("/rules/{id}", ruleHandler.Update)
		r.Delete("/rules/{id}", ruleHandler.Delete)
	})

	return r
}
