package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/muni-admin/internal/api/response"
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MemberHandler handles tenant membership endpoints
type MemberHandler struct {
	membershipService *service.MembershipService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(membershipService *service.MembershipService) *MemberHandler {
	return &MemberHandler{membershipService: membershipService}
}

// List handles listing members of a tenant
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	members, err := h.membershipService.List(r.Context(), userID, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, members)
}

// Add handles adding an existing user to a tenant
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	var input domain.MemberAdd
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	membership, err := h.membershipService.Add(r.Context(), userID, tenantID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, membership)
}

// ChangeRole handles a role change
func (h *MemberHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	var input domain.MemberRoleUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	if err := h.membershipService.ChangeRole(r.Context(), userID, tenantID, targetID, input); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, map[string]any{
		"user_id": targetID,
		"role":    input.Role,
	})
}

// Revoke handles removing a member
func (h *MemberHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	if err := h.membershipService.Revoke(r.Context(), userID, tenantID, targetID); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.NoContent(w)
}
