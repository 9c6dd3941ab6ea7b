package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/identity"
	"github.com/Rrens/muni-admin/internal/metrics"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// InviteLocker serializes invitations per email. Acquire returns a nil
// release func when another request holds the lock.
type InviteLocker interface {
	Acquire(ctx context.Context, email string) (func(context.Context), error)
}

// InviteService resolves emails to identity provider accounts and assigns
// them to tenants
type InviteService struct {
	provider    identity.Provider
	profiles    domain.ProfileRepository
	locker      InviteLocker
	access      *AccessService
	memberships *MembershipService
	metrics     *metrics.Metrics

	// polling for a concurrent invite that holds the lock
	lockWait    time.Duration
	lockRetries int
}

// NewInviteService creates a new invite service. locker may be nil.
func NewInviteService(
	provider identity.Provider,
	profiles domain.ProfileRepository,
	locker InviteLocker,
	access *AccessService,
	memberships *MembershipService,
	m *metrics.Metrics,
) *InviteService {
	return &InviteService{
		provider:    provider,
		profiles:    profiles,
		locker:      locker,
		access:      access,
		memberships: memberships,
		metrics:     m,
		lockWait:    250 * time.Millisecond,
		lockRetries: 8,
	}
}

// Invite resolves or invites a user without a tenant (platform owners only)
func (s *InviteService) Invite(ctx context.Context, userID uuid.UUID, req domain.InviteRequest) (*domain.InviteResult, error) {
	if err := s.access.RequirePlatformOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.ResolveOrCreateUser(ctx, req.Email, req.FullName)
}

// InviteToTenant resolves or invites a user and gives them a role in the
// tenant. The steps are not atomic: when the membership cannot be written
// the result still carries the resolved user with MembershipAssigned false
// and a nil error. An existing user who is the tenant's last owner is
// refused with ErrLastOwner since nothing was sent.
func (s *InviteService) InviteToTenant(ctx context.Context, userID, tenantID uuid.UUID, req domain.InviteRequest) (*domain.InviteResult, error) {
	if _, err := s.access.Require(ctx, userID, tenantID, policy.LevelOwnerAdmin); err != nil {
		return nil, err
	}

	if req.Role == "" {
		req.Role = domain.RoleViewer
	}
	role, err := domain.ParseRole(string(req.Role))
	if err != nil {
		return nil, err
	}

	result, err := s.ResolveOrCreateUser(ctx, req.Email, req.FullName)
	if err != nil {
		return nil, err
	}
	result.TenantID = &tenantID
	result.Role = role

	if _, err := s.memberships.assign(ctx, tenantID, result.UserID, role); err != nil {
		if !result.Invited && errors.Is(err, domain.ErrLastOwner) {
			return nil, err
		}
		log.Error().Err(err).
			Str("tenant_id", tenantID.String()).
			Str("user_id", result.UserID.String()).
			Msg("invited user but failed to assign membership")
		result.Error = publicMessage(err)
		return result, nil
	}

	result.MembershipAssigned = true
	return result, nil
}

// ResolveOrCreateUser returns the account for email, inviting it when no
// account exists yet, and records a local profile. Once the provider has
// resolved the user a failed profile write is reported on the result, not
// as an error.
func (s *InviteService) ResolveOrCreateUser(ctx context.Context, email, fullName string) (*domain.InviteResult, error) {
	email = identity.NormalizeEmail(email)
	if err := validate.Var(email, "required,email,max=255"); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}

	user, invited, err := s.resolve(ctx, email, fullName)
	if err != nil {
		s.metrics.Invite("failed")
		return nil, err
	}

	result := &domain.InviteResult{
		UserID:          user.ID,
		Email:           email,
		Invited:         invited,
		ProfileRecorded: true,
	}

	now := time.Now()
	if err := s.profiles.Upsert(ctx, &domain.Profile{
		ID:        user.ID,
		Email:     email,
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		log.Error().Err(err).
			Str("user_id", user.ID.String()).
			Bool("invited", invited).
			Msg("resolved user but failed to record profile")
		result.ProfileRecorded = false
		result.Error = "profile could not be recorded"
	}

	outcome := "existing"
	if invited {
		outcome = "invited"
	}
	s.metrics.Invite(outcome)

	log.Info().
		Str("user_id", user.ID.String()).
		Bool("invited", invited).
		Msg("user resolved")

	return result, nil
}

func (s *InviteService) resolve(ctx context.Context, email, fullName string) (*identity.User, bool, error) {
	user, err := s.provider.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		return user, false, nil
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, email)
		switch {
		case err != nil:
			// The lock only suppresses duplicate emails; carry on without it.
			log.Warn().Err(err).Msg("invite lock unavailable")
		case release == nil:
			return s.awaitConcurrentInvite(ctx, email)
		default:
			defer release(context.WithoutCancel(ctx))
		}
	}

	metadata := map[string]any{}
	if fullName != "" {
		metadata["full_name"] = fullName
	}

	user, err = s.provider.InviteUser(ctx, email, metadata)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, domain.ErrAlreadyRegistered) {
		return nil, false, err
	}

	user, err = s.provider.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, fmt.Errorf("%w: %s is registered but not listed", domain.ErrResolutionFailure, email)
	}
	return user, false, nil
}

// awaitConcurrentInvite polls the provider while another request invites
// the same email
func (s *InviteService) awaitConcurrentInvite(ctx context.Context, email string) (*identity.User, bool, error) {
	for i := 0; i < s.lockRetries; i++ {
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(s.lockWait):
		}

		user, err := s.provider.FindUserByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		if user != nil {
			return user, false, nil
		}
	}
	return nil, false, fmt.Errorf("%w: concurrent invite for %s did not complete", domain.ErrResolutionFailure, email)
}

// publicMessage is safe to return to clients
func publicMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrLastOwner):
		return domain.ErrLastOwner.Error()
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrForbidden):
		return err.Error()
	default:
		return "membership could not be assigned"
	}
}
