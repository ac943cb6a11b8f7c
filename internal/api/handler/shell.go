package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/twinforge/shell-registry/internal/api/middleware"
	"github.com/twinforge/shell-registry/internal/domain"
	"github.com/twinforge/shell-registry/internal/service"
)

// ShellHandler handles shell endpoints.
type ShellHandler struct {
	svc *service.ShellService
}

// NewShellHandler creates a new shell handler.
func NewShellHandler(svc *service.ShellService) *ShellHandler {
	return &ShellHandler{svc: svc}
}

// List handles GET /shells.
func (h *ShellHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	pageSize := 0
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "pageSize must be a non-negative integer")
			return
		}
		pageSize = parsed
	}
	page, err := h.svc.ListShells(r.Context(), pageSize, r.URL.Query().Get("cursor"), tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Get handles GET /shells/{external_id}.
func (h *ShellHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	shell, err := h.svc.GetShell(r.Context(), chi.URLParam(r, "external_id"), tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, shell)
}

// Create handles POST /shells.
func (h *ShellHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	var req domain.CreateShellRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	shell, err := h.svc.CreateShell(r.Context(), &req, tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, shell)
}

// Delete handles DELETE /shells/{external_id}.
func (h *ShellHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	if err := h.svc.DeleteShell(r.Context(), chi.URLParam(r, "external_id"), tenant); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Lookup handles POST /lookup/shells.
func (h *ShellHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.GetTenantFromContext(r.Context())
	var req domain.LookupRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	page, err := h.svc.LookupShellIDs(r.Context(), req.AssetIDs, req.PageSize, req.Cursor, tenant)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}
