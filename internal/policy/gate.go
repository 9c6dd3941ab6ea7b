package policy

import (
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/google/uuid"
)

// Level is the privilege an operation requires
type Level string

const (
	// LevelMember allows any tenant member or a platform owner.
	LevelMember Level = "member"
	// LevelOwnerAdmin allows tenant owners and admins or a platform owner.
	LevelOwnerAdmin Level = "owner_admin"
	// LevelPlatformOwnerOnly allows platform owners only.
	LevelPlatformOwnerOnly Level = "platform_owner_only"
)

// Caller is the resolved identity behind one request, scoped to one tenant.
// TenantRole is nil when the caller has no membership in that tenant.
type Caller struct {
	UserID          uuid.UUID
	IsPlatformOwner bool
	TenantRole      *domain.Role
}

// Authorize decides whether caller satisfies level. Unknown levels deny.
func Authorize(caller Caller, level Level) bool {
	if caller.IsPlatformOwner {
		return true
	}

	switch level {
	case LevelPlatformOwnerOnly:
		return false
	case LevelOwnerAdmin:
		if caller.TenantRole == nil {
			return false
		}
		return caller.TenantRole.AtLeast(domain.RoleAdmin)
	case LevelMember:
		return caller.TenantRole != nil && caller.TenantRole.Valid()
	default:
		return false
	}
}
