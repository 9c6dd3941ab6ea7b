package service

import (
	"context"
	"fmt"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/metrics"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AccessService resolves callers and their effective module access
type AccessService struct {
	tenants  domain.TenantRepository
	members  domain.MembershipRepository
	modules  domain.ModuleRepository
	profiles domain.ProfileRepository
	metrics  *metrics.Metrics
}

// NewAccessService creates a new access service
func NewAccessService(
	tenants domain.TenantRepository,
	members domain.MembershipRepository,
	modules domain.ModuleRepository,
	profiles domain.ProfileRepository,
	m *metrics.Metrics,
) *AccessService {
	return &AccessService{
		tenants:  tenants,
		members:  members,
		modules:  modules,
		profiles: profiles,
		metrics:  m,
	}
}

// IsPlatformOwner reports whether the user's profile carries the platform
// owner flag. A missing profile is not an owner.
func (s *AccessService) IsPlatformOwner(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile != nil && profile.IsPlatformOwner, nil
}

// Caller builds the caller for userID scoped to tenantID
func (s *AccessService) Caller(ctx context.Context, userID, tenantID uuid.UUID) (policy.Caller, error) {
	caller := policy.Caller{UserID: userID}

	owner, err := s.IsPlatformOwner(ctx, userID)
	if err != nil {
		return caller, err
	}
	caller.IsPlatformOwner = owner

	membership, err := s.members.Get(ctx, tenantID, userID)
	if err != nil {
		return caller, fmt.Errorf("failed to get membership: %w", err)
	}
	if membership != nil {
		role := membership.Role
		caller.TenantRole = &role
	}

	return caller, nil
}

// Require resolves the caller and checks it against level. Any failure to
// resolve denies.
func (s *AccessService) Require(ctx context.Context, userID, tenantID uuid.UUID, level policy.Level) (policy.Caller, error) {
	if userID == uuid.Nil {
		return policy.Caller{}, domain.ErrUnauthenticated
	}

	caller, err := s.Caller(ctx, userID, tenantID)
	if err != nil {
		return caller, err
	}

	if !policy.Authorize(caller, level) {
		s.metrics.GateDenied(string(level))
		log.Debug().
			Str("user_id", userID.String()).
			Str("tenant_id", tenantID.String()).
			Str("level", string(level)).
			Msg("access denied")
		return caller, domain.ErrForbidden
	}

	return caller, nil
}

// RequirePlatformOwner checks a tenant-less operation
func (s *AccessService) RequirePlatformOwner(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return domain.ErrUnauthenticated
	}

	owner, err := s.IsPlatformOwner(ctx, userID)
	if err != nil {
		return err
	}
	if !policy.Authorize(policy.Caller{UserID: userID, IsPlatformOwner: owner}, policy.LevelPlatformOwnerOnly) {
		s.metrics.GateDenied(string(policy.LevelPlatformOwnerOnly))
		return domain.ErrForbidden
	}
	return nil
}

// EffectiveModules resolves userID's visible modules in tenantID
func (s *AccessService) EffectiveModules(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.ModuleKey, error) {
	states, err := s.modules.GetEnablement(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get module enablement: %w", err)
	}

	overrides, err := s.modules.GetUserAccess(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user access: %w", err)
	}

	return policy.ResolveEffectiveModules(policy.EnablementMap(states), overrides, domain.CatalogKeys()), nil
}

// AccessContext returns what userID may see and do in tenantID
func (s *AccessService) AccessContext(ctx context.Context, userID, tenantID uuid.UUID) (*domain.AccessContext, error) {
	caller, err := s.Require(ctx, userID, tenantID, policy.LevelMember)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}

	modules, err := s.EffectiveModules(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	return &domain.AccessContext{
		Tenant:          *tenant,
		Role:            caller.TenantRole,
		IsPlatformOwner: caller.IsPlatformOwner,
		CanAdminister:   policy.Authorize(caller, policy.LevelOwnerAdmin),
		Modules:         modules,
		Groups:          policy.GroupByCategory(modules),
	}, nil
}

// Profile returns the caller's profile, or nil when none is stored
func (s *AccessService) Profile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}
