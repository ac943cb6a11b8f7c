package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/twinforge/shell-registry/internal/api/middleware"
	"github.com/twinforge/shell-registry/internal/domain"
	"github.com/twinforge/shell-registry/internal/service"
)

// RuleHandler handles access rule administration endpoints.
type RuleHandler struct {
	svc *service.RuleService
}

// NewRuleHandler creates a new rule handler.
func NewRuleHandler(svc *service.RuleService) *RuleHandler {
	return &RuleHandler{svc: svc}
}

// Create handles POST /rules.
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	var req domain.CreateAccessRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	rule, err := h.svc.CreateRule(r.Context(), &req, tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, rule)
}

// List handles GET /rules.
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	rules, err := h.svc.ListRules(r.Context(), tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rules)
}

// Get handles GET /rules/{id}.
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	rule, err := h.svc.GetRule(r.Context(), chi.URLParam(r, "id"), tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// Update handles PUT /rules/{id}.
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	var req domain.UpdateAccessRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	rule, err := h.svc.UpdateRule(r.Context(), chi.URLParam(r, "id"), &req, tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// Delete handles DELETE /rules/{id}.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	if err := h.svc.DeleteRule(r.Context(), chi.URLParam(r, "id"), tenant); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
