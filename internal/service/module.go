package service

import (
	"context"
	"fmt"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ModuleService handles tenant module enablement and the per-user access
// matrix
type ModuleService struct {
	modules domain.ModuleRepository
	members domain.MembershipRepository
	access  *AccessService
}

// NewModuleService creates a new module service
func NewModuleService(modules domain.ModuleRepository, members domain.MembershipRepository, access *AccessService) *ModuleService {
	return &ModuleService{modules: modules, members: members, access: access}
}

// GetEnablement returns every catalog module with the tenant's flag
func (s *ModuleService) GetEnablement(ctx context.Context, userID, tenantID uuid.UUID) ([]domain.ModuleState, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}
	return s.enablement(ctx, tenantID)
}

// SetEnablement replaces the tenant's enablement. Catalog modules missing
// from the update are disabled.
func (s *ModuleService) SetEnablement(ctx context.Context, userID, tenantID uuid.UUID, input domain.ModuleEnablementUpdate) ([]domain.ModuleState, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}

	for key := range input.Modules {
		if _, err := domain.ParseModuleKey(string(key)); err != nil {
			return nil, err
		}
	}

	states := make([]domain.ModuleState, len(domain.Catalog))
	for i, m := range domain.Catalog {
		states[i] = domain.ModuleState{Key: m.Key, Enabled: input.Modules[m.Key]}
	}

	if err := s.modules.SetEnablement(ctx, tenantID, states); err != nil {
		return nil, fmt.Errorf("failed to set module enablement: %w", err)
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("changed_by", userID.String()).
		Int("enabled", len(policy.ResolveEffectiveModules(policy.EnablementMap(states), nil, domain.CatalogKeys()))).
		Msg("module enablement updated")

	return states, nil
}

// SetModule enables or disables one module for a tenant
func (s *ModuleService) SetModule(ctx context.Context, userID, tenantID uuid.UUID, key string, enabled bool) (*domain.ModuleState, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}

	moduleKey, err := domain.ParseModuleKey(key)
	if err != nil {
		return nil, err
	}

	if err := s.modules.UpsertEnablement(ctx, tenantID, moduleKey, enabled); err != nil {
		return nil, fmt.Errorf("failed to set module enablement: %w", err)
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("module", key).
		Bool("enabled", enabled).
		Str("changed_by", userID.String()).
		Msg("module toggled")

	return &domain.ModuleState{Key: moduleKey, Enabled: enabled}, nil
}

// SetMemberModule writes one override for a member and returns the
// member's effective modules
func (s *ModuleService) SetMemberModule(ctx context.Context, userID, tenantID, targetID uuid.UUID, key string, enabled bool) (*domain.MemberModules, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}

	moduleKey, err := domain.ParseModuleKey(key)
	if err != nil {
		return nil, err
	}

	member, err := s.members.Get(ctx, tenantID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}

	if err := s.modules.UpsertUserAccess(ctx, tenantID, targetID, moduleKey, enabled); err != nil {
		return nil, fmt.Errorf("failed to set user access: %w", err)
	}

	effective, err := s.access.EffectiveModules(ctx, tenantID, targetID)
	if err != nil {
		return nil, err
	}
	return &domain.MemberModules{UserID: targetID, Effective: effective}, nil
}

// GetAccessMatrix returns every member's overrides and effective modules
func (s *ModuleService) GetAccessMatrix(ctx context.Context, userID, tenantID uuid.UUID) (*domain.AccessMatrix, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}
	return s.matrix(ctx, tenantID)
}

// SetAccessMatrix validates every record against the catalog and the
// tenant's members, then writes them together
func (s *ModuleService) SetAccessMatrix(ctx context.Context, userID, tenantID uuid.UUID, input domain.AccessMatrixUpdate) (*domain.AccessMatrix, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}

	members, err := s.members.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	isMember := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		isMember[m.UserID] = true
	}

	for _, u := range input.Updates {
		if _, err := domain.ParseModuleKey(string(u.ModuleKey)); err != nil {
			return nil, err
		}
		if !isMember[u.UserID] {
			return nil, fmt.Errorf("%w: user %s is not a member of this tenant", domain.ErrValidation, u.UserID)
		}
	}

	if err := s.modules.SetUserAccess(ctx, tenantID, input.Updates); err != nil {
		return nil, fmt.Errorf("failed to set user access: %w", err)
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("changed_by", userID.String()).
		Int("records", len(input.Updates)).
		Msg("access matrix updated")

	return s.matrix(ctx, tenantID)
}

func (s *ModuleService) enablement(ctx context.Context, tenantID uuid.UUID) ([]domain.ModuleState, error) {
	stored, err := s.modules.GetEnablement(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get module enablement: %w", err)
	}

	enabled := policy.EnablementMap(stored)
	states := make([]domain.ModuleState, len(domain.Catalog))
	for i, m := range domain.Catalog {
		states[i] = domain.ModuleState{Key: m.Key, Enabled: enabled[m.Key]}
	}
	return states, nil
}

func (s *ModuleService) matrix(ctx context.Context, tenantID uuid.UUID) (*domain.AccessMatrix, error) {
	stored, err := s.modules.GetEnablement(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get module enablement: %w", err)
	}
	enabled := policy.EnablementMap(stored)
	catalog := domain.CatalogKeys()

	members, err := s.members.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	access, err := s.modules.ListUserAccess(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user access: %w", err)
	}

	matrix := &domain.AccessMatrix{
		TenantID: tenantID,
		Enabled:  policy.ResolveEffectiveModules(enabled, nil, catalog),
		Members:  make([]domain.MemberAccess, len(members)),
	}
	for i, m := range members {
		overrides := access[m.UserID]
		if overrides == nil {
			overrides = []domain.ModuleOverride{}
		}
		matrix.Members[i] = domain.MemberAccess{
			Member:    m,
			Overrides: overrides,
			Effective: policy.ResolveEffectiveModules(enabled, overrides, catalog),
		}
	}
	return matrix, nil
}
