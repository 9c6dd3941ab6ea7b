package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/muni-admin/internal/api/response"
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/service"
)

// TenantHandler handles tenant endpoints
type TenantHandler struct {
	tenantService *service.TenantService
	accessService *service.AccessService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *service.TenantService, accessService *service.AccessService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService, accessService: accessService}
}

// Create handles tenant creation
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var input domain.TenantCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	tenant, err := h.tenantService.Create(r.Context(), userID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, tenant)
}

// List handles listing the tenants visible to the user
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	tenants, err := h.tenantService.List(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, tenants)
}

// Get handles getting a tenant by ID
func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Get(r.Context(), userID, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, tenant)
}

// Access returns the caller's effective access in the tenant
func (h *TenantHandler) Access(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	accessCtx, err := h.accessService.AccessContext(r.Context(), userID, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, accessCtx)
}
