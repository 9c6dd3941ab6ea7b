package policy

import (
	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/google/uuid"
)

// GuardOwnerRemoval reports whether changing target to newRole keeps at
// least one owner. A nil newRole means the membership is being removed.
// currentOwners must come from a fresh read taken at mutation time.
func GuardOwnerRemoval(currentOwners []uuid.UUID, target uuid.UUID, newRole *domain.Role) bool {
	isTargetOwner := false
	owners := make(map[uuid.UUID]struct{}, len(currentOwners))
	for _, id := range currentOwners {
		owners[id] = struct{}{}
		if id == target {
			isTargetOwner = true
		}
	}

	remaining := len(owners)
	if isTargetOwner {
		remaining--
	}

	staysOwner := newRole != nil && *newRole == domain.RoleOwner
	return !(isTargetOwner && !staysOwner && remaining == 0)
}
