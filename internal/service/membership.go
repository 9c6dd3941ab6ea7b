package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/metrics"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MembershipService handles tenant membership operations
type MembershipService struct {
	members domain.MembershipRepository
	access  *AccessService
	metrics *metrics.Metrics
}

// NewMembershipService creates a new membership service
func NewMembershipService(members domain.MembershipRepository, access *AccessService, m *metrics.Metrics) *MembershipService {
	return &MembershipService{members: members, access: access, metrics: m}
}

// List returns the members of a tenant
func (s *MembershipService) List(ctx context.Context, userID, tenantID uuid.UUID) ([]domain.MemberView, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelMember); err != nil {
		return nil, err
	}

	members, err := s.members.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// Add gives an existing user a role in a tenant. Re-adding a current member
// is a role change and goes through the last-owner check.
func (s *MembershipService) Add(ctx context.Context, userID, tenantID uuid.UUID, input domain.MemberAdd) (*domain.Membership, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}

	role, err := domain.ParseRole(string(input.Role))
	if err != nil {
		return nil, err
	}
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}

	return s.assign(ctx, tenantID, input.UserID, role)
}

// ChangeRole updates a member's role
func (s *MembershipService) ChangeRole(ctx context.Context, userID, tenantID, targetID uuid.UUID, input domain.MemberRoleUpdate) error {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return err
	}

	role, err := domain.ParseRole(string(input.Role))
	if err != nil {
		return err
	}

	if err := s.changeRole(ctx, tenantID, targetID, role); err != nil {
		return err
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("user_id", targetID.String()).
		Str("role", string(role)).
		Str("changed_by", userID.String()).
		Msg("member role changed")
	return nil
}

// Revoke removes a member from a tenant
func (s *MembershipService) Revoke(ctx context.Context, userID, tenantID, targetID uuid.UUID) error {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return err
	}

	if err := s.checkGuard(ctx, tenantID, targetID, nil); err != nil {
		return err
	}

	if err := s.members.Delete(ctx, tenantID, targetID); err != nil {
		return s.storeResult("revoke", err)
	}

	log.Info().
		Str("tenant_id", tenantID.String()).
		Str("user_id", targetID.String()).
		Str("revoked_by", userID.String()).
		Msg("member revoked")
	return nil
}

// assign upserts a membership, routing existing members through the guarded
// role change. The caller must already be authorized.
func (s *MembershipService) assign(ctx context.Context, tenantID, targetID uuid.UUID, role domain.Role) (*domain.Membership, error) {
	existing, err := s.members.Get(ctx, tenantID, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	now := time.Now()
	if existing != nil {
		if existing.Role != role {
			if err := s.changeRole(ctx, tenantID, targetID, role); err != nil {
				return nil, err
			}
		}
		existing.Role = role
		existing.UpdatedAt = now
		return existing, nil
	}

	membership := &domain.Membership{
		TenantID:  tenantID,
		UserID:    targetID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The target may have become a member since Get; the store re-runs the
	// owner guard under the tenant lock.
	if err := s.members.Upsert(ctx, membership); err != nil {
		return nil, s.storeResult("add", err)
	}
	return membership, nil
}

func (s *MembershipService) changeRole(ctx context.Context, tenantID, targetID uuid.UUID, role domain.Role) error {
	if err := s.checkGuard(ctx, tenantID, targetID, &role); err != nil {
		return err
	}

	if err := s.members.ChangeRole(ctx, tenantID, targetID, role); err != nil {
		return s.storeResult("change_role", err)
	}
	return nil
}

// checkGuard fails fast on a fresh owner list. The store repeats the check
// under a tenant lock.
func (s *MembershipService) checkGuard(ctx context.Context, tenantID, targetID uuid.UUID, role *domain.Role) error {
	owners, err := s.members.ListOwners(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	if !policy.GuardOwnerRemoval(owners, targetID, role) {
		op := "change_role"
		if role == nil {
			op = "revoke"
		}
		s.metrics.GuardDenied(op)
		return domain.ErrLastOwner
	}
	return nil
}

func (s *MembershipService) storeResult(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrLastOwner):
		s.metrics.GuardDenied(op)
		return err
	case errors.Is(err, domain.ErrNotFound):
		return err
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
