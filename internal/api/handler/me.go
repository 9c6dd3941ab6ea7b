package handler

import (
	"net/http"

	"github.com/Rrens/muni-admin/internal/api/middleware"
	"github.com/Rrens/muni-admin/internal/api/response"
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// MeResponse describes the signed-in user
type MeResponse struct {
	UserID          uuid.UUID               `json:"user_id"`
	Email           string                  `json:"email"`
	FullName        string                  `json:"full_name,omitempty"`
	IsPlatformOwner bool                    `json:"is_platform_owner"`
	Tenants         []domain.TenantWithRole `json:"tenants"`
}

// CatalogCategory is one group of the module catalog
type CatalogCategory struct {
	Category domain.ModuleCategory `json:"category"`
	Modules  []domain.Module       `json:"modules"`
}

// MeHandler handles the signed-in user's own endpoints
type MeHandler struct {
	accessService *service.AccessService
	tenantService *service.TenantService
}

// NewMeHandler creates a new me handler
func NewMeHandler(accessService *service.AccessService, tenantService *service.TenantService) *MeHandler {
	return &MeHandler{accessService: accessService, tenantService: tenantService}
}

// Get returns the session user with profile and tenants
func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthenticated")
		return
	}
	email, _ := middleware.GetUserEmail(r.Context())

	profile, err := h.accessService.Profile(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	tenants, err := h.tenantService.List(r.Context(), userID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	me := MeResponse{UserID: userID, Email: email, Tenants: tenants}
	if profile != nil {
		me.FullName = profile.FullName
		me.IsPlatformOwner = profile.IsPlatformOwner
	}
	response.OK(w, me)
}

// ListModules returns the module catalog grouped by category
func ListModules(w http.ResponseWriter, r *http.Request) {
	groups := make([]CatalogCategory, 0, len(domain.Categories))
	for _, category := range domain.Categories {
		var modules []domain.Module
		for _, m := range domain.Catalog {
			if m.Category == category {
				modules = append(modules, m)
			}
		}
		if len(modules) > 0 {
			groups = append(groups, CatalogCategory{Category: category, Modules: modules})
		}
	}
	response.OK(w, groups)
}

// sessionUser reads the authenticated user or answers 401
func sessionUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthenticated")
	}
	return userID, ok
}

// tenantScope reads the authenticated user and the URL tenant
func tenantScope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		response.BadRequest(w, "missing tenant ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, tenantID, true
}
