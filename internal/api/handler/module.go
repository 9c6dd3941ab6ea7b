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

// ModuleHandler handles module enablement and the access matrix
type ModuleHandler struct {
	moduleService *service.ModuleService
}

// NewModuleHandler creates a new module handler
func NewModuleHandler(moduleService *service.ModuleService) *ModuleHandler {
	return &ModuleHandler{moduleService: moduleService}
}

// GetEnablement lists every catalog module with the tenant's flag
func (h *ModuleHandler) GetEnablement(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	states, err := h.moduleService.GetEnablement(r.Context(), userID, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, states)
}

// SetEnablement replaces the tenant's enablement
func (h *ModuleHandler) SetEnablement(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	var input domain.ModuleEnablementUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	states, err := h.moduleService.SetEnablement(r.Context(), userID, tenantID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, states)
}

// SetModule toggles one module for the tenant
func (h *ModuleHandler) SetModule(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	input, ok := decodeToggle(w, r)
	if !ok {
		return
	}

	state, err := h.moduleService.SetModule(r.Context(), userID, tenantID, chi.URLParam(r, "moduleKey"), *input.Enabled)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, state)
}

// SetMemberModule writes one cell of the access matrix
func (h *ModuleHandler) SetMemberModule(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	input, ok := decodeToggle(w, r)
	if !ok {
		return
	}

	result, err := h.moduleService.SetMemberModule(r.Context(), userID, tenantID, targetID, chi.URLParam(r, "moduleKey"), *input.Enabled)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, result)
}

func decodeToggle(w http.ResponseWriter, r *http.Request) (domain.ModuleToggle, bool) {
	var input domain.ModuleToggle
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return input, false
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return input, false
	}
	return input, true
}

// GetAccessMatrix returns per-user overrides and effective modules
func (h *ModuleHandler) GetAccessMatrix(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	matrix, err := h.moduleService.GetAccessMatrix(r.Context(), userID, tenantID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, matrix)
}

// SetAccessMatrix writes per-user overrides
func (h *ModuleHandler) SetAccessMatrix(w http.ResponseWriter, r *http.Request) {
	userID, tenantID, ok := tenantScope(w, r)
	if !ok {
		return
	}

	var input domain.AccessMatrixUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	matrix, err := h.moduleService.SetAccessMatrix(r.Context(), userID, tenantID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.OK(w, matrix)
}
