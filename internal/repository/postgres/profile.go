package postgres

import (
	"context"
	"errors"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository handles user profile data access
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves a profile, or nil when none exists
func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	query := `
		SELECT id, email, full_name, is_platform_owner, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p domain.Profile
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.IsPlatformOwner,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get profile", err)
	}

	return &p, nil
}

// Upsert creates or refreshes a profile. An empty full name keeps the stored
// one, and the platform owner flag is never cleared here.
func (r *ProfileRepository) Upsert(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, is_platform_owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name),
			is_platform_owner = profiles.is_platform_owner OR EXCLUDED.is_platform_owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID,
		p.Email,
		p.FullName,
		p.IsPlatformOwner,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return storeErr("upsert profile", err)
	}
	return nil
}
