package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SelectionSigner issues and verifies the selected-tenant token
type SelectionSigner interface {
	GenerateTenantSelection(userID, tenantID uuid.UUID) (string, error)
	ValidateTenantSelection(token string, userID uuid.UUID) (uuid.UUID, error)
}

// TenantService handles tenant operations
type TenantService struct {
	tenants domain.TenantRepository
	members domain.MembershipRepository
	access  *AccessService
	signer  SelectionSigner
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenants domain.TenantRepository,
	members domain.MembershipRepository,
	access *AccessService,
	signer SelectionSigner,
) *TenantService {
	return &TenantService{
		tenants: tenants,
		members: members,
		access:  access,
		signer:  signer,
	}
}

// Create creates a tenant and makes the creator its owner
func (s *TenantService) Create(ctx context.Context, userID uuid.UUID, input domain.TenantCreate) (*domain.Tenant, error) {
	if err := s.access.RequirePlatformOwner(ctx, userID); err != nil {
		return nil, err
	}

	modules := make([]domain.ModuleKey, 0, len(input.Modules))
	seen := make(map[domain.ModuleKey]bool, len(input.Modules))
	for _, key := range input.Modules {
		if _, err := domain.ParseModuleKey(string(key)); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			modules = append(modules, key)
		}
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:        uuid.New(),
		Name:      input.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.tenants.Create(ctx, tenant, userID, modules); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	log.Info().
		Str("tenant_id", tenant.ID.String()).
		Str("created_by", userID.String()).
		Int("modules", len(modules)).
		Msg("tenant created")

	return tenant, nil
}

// List returns every tenant for a platform owner, otherwise the caller's
// memberships
func (s *TenantService) List(ctx context.Context, userID uuid.UUID) ([]domain.TenantWithRole, error) {
	memberships, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	owner, err := s.access.IsPlatformOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !owner {
		return memberships, nil
	}

	roles := make(map[uuid.UUID]*domain.Role, len(memberships))
	for _, m := range memberships {
		roles[m.ID] = m.Role
	}

	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	result := make([]domain.TenantWithRole, len(tenants))
	for i, t := range tenants {
		result[i] = domain.TenantWithRole{Tenant: t, Role: roles[t.ID]}
	}
	return result, nil
}

// Get retrieves a tenant the caller can see
func (s *TenantService) Get(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Tenant, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelMember); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}
	return tenant, nil
}

// Select checks the caller may enter tenantID and returns the signed
// selection token with the resolved context
func (s *TenantService) Select(ctx context.Context, userID, tenantID uuid.UUID) (string, *domain.AccessContext, error) {
	accessCtx, err := s.access.AccessContext(ctx, userID, tenantID)
	if err != nil {
		return "", nil, err
	}

	token, err := s.signer.GenerateTenantSelection(userID, tenantID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign tenant selection: %w", err)
	}
	return token, accessCtx, nil
}

// ResolveSelection re-validates a selection token. It returns nil when the
// token is invalid or the caller lost access to the tenant.
func (s *TenantService) ResolveSelection(ctx context.Context, userID uuid.UUID, token string) (*domain.AccessContext, error) {
	if token == "" {
		return nil, nil
	}

	tenantID, err := s.signer.ValidateTenantSelection(token, userID)
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID.String()).Msg("discarding tenant selection")
		return nil, nil
	}

	accessCtx, err := s.access.AccessContext(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return accessCtx, nil
}
