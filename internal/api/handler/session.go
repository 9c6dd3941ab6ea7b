package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/muni-admin/internal/api/response"
	"github.com/Rrens/muni-admin/internal/config"
	"github.com/Rrens/muni-admin/internal/service"
	"github.com/google/uuid"
)

// SelectTenantRequest picks the tenant shown by default
type SelectTenantRequest struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
}

// SessionHandler manages the selected-tenant cookie
type SessionHandler struct {
	tenantService *service.TenantService
	auth          config.AuthConfig
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(tenantService *service.TenantService, auth config.AuthConfig) *SessionHandler {
	return &SessionHandler{tenantService: tenantService, auth: auth}
}

// Context returns the access context of the selected tenant, or null when
// no valid selection exists
func (h *SessionHandler) Context(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var token string
	if cookie, err := r.Cookie(h.auth.TenantCookie); err == nil {
		token = cookie.Value
	}

	accessCtx, err := h.tenantService.ResolveSelection(r.Context(), userID, token)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if accessCtx == nil && token != "" {
		h.clearCookie(w)
	}

	response.OK(w, accessCtx)
}

// Select validates access to a tenant and stores it in the cookie
func (h *SessionHandler) Select(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var input SelectTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	token, accessCtx, err := h.tenantService.Select(r.Context(), userID, input.TenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.TenantCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.auth.CookieDomain,
		MaxAge:   int(h.auth.TenantSelectionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.auth.CookieSecure,
		SameSite: h.auth.SameSite(),
	})

	response.OK(w, accessCtx)
}

// Clear drops the tenant selection
func (h *SessionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w)
	response.NoContent(w)
}

func (h *SessionHandler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.auth.TenantCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.auth.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.auth.CookieSecure,
		SameSite: h.auth.SameSite(),
	})
}
