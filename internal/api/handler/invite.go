package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/muni-admin/internal/api/response"
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/service"
)

// InviteHandler handles invitations
type InviteHandler struct {
	inviteService *service.InviteService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(inviteService *service.InviteService) *InviteHandler {
	return &InviteHandler{inviteService: inviteService}
}

// Invite resolves or invites a user without assigning a tenant
func (h *InviteHandler) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var input domain.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.inviteService.Invite(r.Context(), userID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	if result.Partial() {
		response.MultiStatus(w, result)
		return
	}
	response.OK(w, result)
}

// InviteToTenant invites a user and assigns a role. A resolved user whose
// membership or profile write failed is answered with 207.
func (h *InviteHandler) InviteToTenant(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	var input domain.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.inviteService.InviteToTenant(r.Context(), userID, tenantID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	if result.Partial() {
		response.MultiStatus(w, result)
		return
	}
	response.Created(w, result)
}
