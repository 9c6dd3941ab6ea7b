package postgres

import (
	"context"
	"errors"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TenantRepository handles tenant data access
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create inserts the tenant, its first owner and its initial modules in
// one transaction
func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant, owner uuid.UUID, modules []domain.ModuleKey) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO tenants (id, name, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		`, tenant.ID, tenant.Name, tenant.CreatedAt, tenant.UpdatedAt)
		if err != nil {
			return storeErr("create tenant", err)
		}

		if err := upsertMembership(ctx, tx, &domain.Membership{
			TenantID:  tenant.ID,
			UserID:    owner,
			Role:      domain.RoleOwner,
			CreatedAt: tenant.CreatedAt,
			UpdatedAt: tenant.CreatedAt,
		}); err != nil {
			return err
		}

		states := make([]domain.ModuleState, len(modules))
		for i, key := range modules {
			states[i] = domain.ModuleState{Key: key, Enabled: true}
		}
		return upsertEnablementBatch(ctx, tx, tenant.ID, states)
	})
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var tenant domain.Tenant
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get tenant", err)
	}

	return &tenant, nil
}

// List retrieves all tenants ordered by name
func (r *TenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM tenants
		ORDER BY name ASC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, storeErr("list tenants", err)
	}
	defer rows.Close()

	tenants := []domain.Tenant{}
	for rows.Next() {
		var tenant domain.Tenant
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, storeErr("scan tenant", err)
		}
		tenants = append(tenants, tenant)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list tenants", err)
	}
	return tenants, nil
}
