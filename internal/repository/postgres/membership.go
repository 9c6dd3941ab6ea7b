package postgres

import (
	"context"
	"errors"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MembershipRepository handles tenant membership data access
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Get retrieves a membership, or nil when the user is not a member
func (r *MembershipRepository) Get(ctx context.Context, tenantID, userID uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT tenant_id, user_id, role, created_at, updated_at
		FROM tenant_memberships
		WHERE tenant_id = $1 AND user_id = $2
	`

	var m domain.Membership
	err := r.db.Pool.QueryRow(ctx, query, tenantID, userID).Scan(
		&m.TenantID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get membership", err)
	}

	return &m, nil
}

// ListByTenant retrieves all members of a tenant with their profiles
func (r *MembershipRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberView, error) {
	query := `
		SELECT m.tenant_id, m.user_id, m.role, m.created_at, m.updated_at,
		       COALESCE(p.email, ''), COALESCE(p.full_name, '')
		FROM tenant_memberships m
		LEFT JOIN profiles p ON p.id = m.user_id
		WHERE m.tenant_id = $1
		ORDER BY m.created_at ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	defer rows.Close()

	members := []domain.MemberView{}
	for rows.Next() {
		var v domain.MemberView
		if err := rows.Scan(
			&v.TenantID,
			&v.UserID,
			&v.Role,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.Email,
			&v.FullName,
		); err != nil {
			return nil, storeErr("scan membership", err)
		}
		members = append(members, v)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list memberships", err)
	}
	return members, nil
}

// ListByUser retrieves the tenants a user belongs to
func (r *MembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TenantWithRole, error) {
	query := `
		SELECT t.id, t.name, t.created_at, t.updated_at, m.role
		FROM tenants t
		INNER JOIN tenant_memberships m ON t.id = m.tenant_id
		WHERE m.user_id = $1
		ORDER BY t.name ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, storeErr("list user tenants", err)
	}
	defer rows.Close()

	tenants := []domain.TenantWithRole{}
	for rows.Next() {
		var t domain.TenantWithRole
		var role domain.Role
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt, &role); err != nil {
			return nil, storeErr("scan tenant", err)
		}
		t.Role = &role
		tenants = append(tenants, t)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list user tenants", err)
	}
	return tenants, nil
}

// ListOwners returns the user IDs holding the owner role in a tenant
func (r *MembershipRepository) ListOwners(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	return listOwners(ctx, r.db.Pool, tenantID)
}

// Upsert creates or replaces a membership keyed on (tenant, user). A
// replacement that demotes the last owner is refused.
func (r *MembershipRepository) Upsert(ctx context.Context, m *domain.Membership) error {
	role := m.Role
	return r.mutateGuarded(ctx, m.TenantID, m.UserID, &role, func(tx pgx.Tx) (int64, error) {
		if err := upsertMembership(ctx, tx, m); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// ChangeRole updates a member's role unless that would leave the tenant
// without an owner
func (r *MembershipRepository) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role domain.Role) error {
	return r.mutateGuarded(ctx, tenantID, userID, &role, func(tx pgx.Tx) (int64, error) {
		tag, err := tx.Exec(ctx, `
			UPDATE tenant_memberships
			SET role = $3, updated_at = NOW()
			WHERE tenant_id = $1 AND user_id = $2
		`, tenantID, userID, role)
		return tag.RowsAffected(), err
	})
}

// Delete removes a membership unless it belongs to the last owner
func (r *MembershipRepository) Delete(ctx context.Context, tenantID, userID uuid.UUID) error {
	return r.mutateGuarded(ctx, tenantID, userID, nil, func(tx pgx.Tx) (int64, error) {
		tag, err := tx.Exec(ctx, `
			DELETE FROM tenant_memberships
			WHERE tenant_id = $1 AND user_id = $2
		`, tenantID, userID)
		return tag.RowsAffected(), err
	})
}

// mutateGuarded locks the tenant row so concurrent role changes in the same
// tenant serialize, then re-reads the owners and applies the last-owner
// guard before writing.
func (r *MembershipRepository) mutateGuarded(ctx context.Context, tenantID, userID uuid.UUID, role *domain.Role, write func(tx pgx.Tx) (int64, error)) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM tenants WHERE id = $1 FOR UPDATE`, tenantID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrTenantNotFound
			}
			return storeErr("lock tenant", err)
		}

		owners, err := listOwners(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if !policy.GuardOwnerRemoval(owners, userID, role) {
			return domain.ErrLastOwner
		}

		affected, err := write(tx)
		if err != nil {
			if errors.Is(err, domain.ErrStore) {
				return err
			}
			return storeErr("update membership", err)
		}
		if affected == 0 {
			return domain.ErrMemberNotFound
		}
		return nil
	})
}

func listOwners(ctx context.Context, q querier, tenantID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx, `
		SELECT user_id
		FROM tenant_memberships
		WHERE tenant_id = $1 AND role = $2
	`, tenantID, domain.RoleOwner)
	if err != nil {
		return nil, storeErr("list owners", err)
	}
	defer rows.Close()

	owners := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan owner", err)
		}
		owners = append(owners, id)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list owners", err)
	}
	return owners, nil
}

func upsertMembership(ctx context.Context, q querier, m *domain.Membership) error {
	_, err := q.Exec(ctx, `
		INSERT INTO tenant_memberships (tenant_id, user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
	`, m.TenantID, m.UserID, m.Role, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return storeErr("upsert membership", err)
	}
	return nil
}
