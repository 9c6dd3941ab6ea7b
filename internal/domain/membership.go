package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is a tenant-scoped privilege level
type Role string

// Roles ordered from most to least privileged
const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher"
	RoleCrewLeader Role = "crew_leader"
	RoleCrew       Role = "crew"
	RoleViewer     Role = "viewer"
)

// Roles lists every valid role, highest privilege first.
var Roles = []Role{RoleOwner, RoleAdmin, RoleDispatcher, RoleCrewLeader, RoleCrew, RoleViewer}

// Rank returns the privilege rank of the role. Higher is more privileged,
// zero means the role is not part of the closed set.
func (r Role) Rank() int {
	for i, role := range Roles {
		if role == r {
			return len(Roles) - i
		}
	}
	return 0
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r is as privileged as other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
	}
	return r, nil
}

// Membership represents a user's role in a tenant
type Membership struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberView combines a membership with the member's profile
type MemberView struct {
	Membership
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// MemberAdd represents a request to add an existing user to a tenant
type MemberAdd struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   Role      `json:"role" validate:"required"`
}

// MemberRoleUpdate represents a role change request
type MemberRoleUpdate struct {
	Role Role `json:"role" validate:"required"`
}

// MembershipRepository defines the interface for membership storage.
// Upsert, ChangeRole and Delete re-check last-owner protection atomically.
type MembershipRepository interface {
	Get(ctx context.Context, tenantID, userID uuid.UUID) (*Membership, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]MemberView, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]TenantWithRole, error)
	ListOwners(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
	Upsert(ctx context.Context, membership *Membership) error
	ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role Role) error
	Delete(ctx context.Context, tenantID, userID uuid.UUID) error
}
