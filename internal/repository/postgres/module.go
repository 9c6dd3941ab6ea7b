package postgres

import (
	"context"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ModuleRepository handles module enablement and per-user access overrides
type ModuleRepository struct {
	db *DB
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(db *DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

// GetEnablement returns the stored enablement rows of a tenant
func (r *ModuleRepository) GetEnablement(ctx context.Context, tenantID uuid.UUID) ([]domain.ModuleState, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT module_key, enabled
		FROM tenant_modules
		WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, storeErr("get module enablement", err)
	}
	defer rows.Close()

	states := []domain.ModuleState{}
	for rows.Next() {
		var s domain.ModuleState
		if err := rows.Scan(&s.Key, &s.Enabled); err != nil {
			return nil, storeErr("scan module enablement", err)
		}
		states = append(states, s)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("get module enablement", err)
	}
	return states, nil
}

// UpsertEnablement sets one module's enablement for a tenant
func (r *ModuleRepository) UpsertEnablement(ctx context.Context, tenantID uuid.UUID, key domain.ModuleKey, enabled bool) error {
	return upsertEnablementBatch(ctx, r.db.Pool, tenantID, []domain.ModuleState{{Key: key, Enabled: enabled}})
}

// SetEnablement writes several enablement rows atomically
func (r *ModuleRepository) SetEnablement(ctx context.Context, tenantID uuid.UUID, states []domain.ModuleState) error {
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		return upsertEnablementBatch(ctx, tx, tenantID, states)
	})
}

// GetUserAccess returns a user's overrides in a tenant
func (r *ModuleRepository) GetUserAccess(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.ModuleOverride, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT module_key, enabled
		FROM user_module_access
		WHERE tenant_id = $1 AND user_id = $2
	`, tenantID, userID)
	if err != nil {
		return nil, storeErr("get user access", err)
	}
	defer rows.Close()

	overrides := []domain.ModuleOverride{}
	for rows.Next() {
		var o domain.ModuleOverride
		if err := rows.Scan(&o.Key, &o.Enabled); err != nil {
			return nil, storeErr("scan user access", err)
		}
		overrides = append(overrides, o)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("get user access", err)
	}
	return overrides, nil
}

// ListUserAccess returns every override in a tenant grouped by user
func (r *ModuleRepository) ListUserAccess(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID][]domain.ModuleOverride, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT user_id, module_key, enabled
		FROM user_module_access
		WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, storeErr("list user access", err)
	}
	defer rows.Close()

	access := make(map[uuid.UUID][]domain.ModuleOverride)
	for rows.Next() {
		var userID uuid.UUID
		var o domain.ModuleOverride
		if err := rows.Scan(&userID, &o.Key, &o.Enabled); err != nil {
			return nil, storeErr("scan user access", err)
		}
		access[userID] = append(access[userID], o)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list user access", err)
	}
	return access, nil
}

// UpsertUserAccess sets one override for a user
func (r *ModuleRepository) UpsertUserAccess(ctx context.Context, tenantID, userID uuid.UUID, key domain.ModuleKey, enabled bool) error {
	return r.SetUserAccess(ctx, tenantID, []domain.AccessUpdate{{UserID: userID, ModuleKey: key, Enabled: enabled}})
}

// SetUserAccess writes several overrides atomically
func (r *ModuleRepository) SetUserAccess(ctx context.Context, tenantID uuid.UUID, updates []domain.AccessUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`
				INSERT INTO user_module_access (tenant_id, user_id, module_key, enabled, updated_at)
				VALUES ($1, $2, $3, $4, NOW())
				ON CONFLICT (tenant_id, user_id, module_key) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = NOW()
			`, tenantID, u.UserID, u.ModuleKey, u.Enabled)
		}

		br := tx.SendBatch(ctx, batch)
		for range updates {
			if _, err := br.Exec(); err != nil {
				br.Close()
				if isForeignKeyViolation(err) {
					return domain.ErrMemberNotFound
				}
				return storeErr("upsert user access", err)
			}
		}
		if err := br.Close(); err != nil {
			return storeErr("upsert user access", err)
		}
		return nil
	})
}

// batchSender is satisfied by both the pool and a transaction
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func upsertEnablementBatch(ctx context.Context, q batchSender, tenantID uuid.UUID, states []domain.ModuleState) error {
	if len(states) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range states {
		batch.Queue(`
			INSERT INTO tenant_modules (tenant_id, module_key, enabled, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (tenant_id, module_key) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = NOW()
		`, tenantID, s.Key, s.Enabled)
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for range states {
		if _, err := br.Exec(); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrTenantNotFound
			}
			return storeErr("upsert module enablement", err)
		}
	}
	return nil
}
