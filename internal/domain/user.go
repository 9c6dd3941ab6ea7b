package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Profile is the local record of an identity provider user
type Profile struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	IsPlatformOwner bool      `json:"is_platform_owner"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Session is the authenticated identity behind a request
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// InviteRequest represents an invitation, optionally into a tenant
type InviteRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	FullName string `json:"full_name,omitempty" validate:"max=255"`
	Role     Role   `json:"role,omitempty"`
}

// InviteResult reports each step of an invitation separately since the
// steps are not atomic.
type InviteResult struct {
	UserID             uuid.UUID  `json:"user_id"`
	Email              string     `json:"email"`
	Invited            bool       `json:"invited"`
	TenantID           *uuid.UUID `json:"tenant_id,omitempty"`
	Role               Role       `json:"role,omitempty"`
	MembershipAssigned bool       `json:"membership_assigned"`
	ProfileRecorded    bool       `json:"profile_recorded"`
	Error              string     `json:"error,omitempty"`
}

// Partial reports whether a step after resolving the user failed
func (r *InviteResult) Partial() bool {
	return r.Error != ""
}

// AccessContext is what a user may see and do in one tenant
type AccessContext struct {
	Tenant          Tenant                         `json:"tenant"`
	Role            *Role                          `json:"role,omitempty"`
	IsPlatformOwner bool                           `json:"is_platform_owner"`
	CanAdminister   bool                           `json:"can_administer"`
	Modules         []ModuleKey                    `json:"modules"`
	Groups          map[ModuleCategory][]ModuleKey `json:"groups"`
}

// ProfileRepository defines the interface for profile storage
type ProfileRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, profile *Profile) error
}
