package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant represents a municipality account
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantCreate represents tenant creation data
type TenantCreate struct {
	Name    string      `json:"name" validate:"required,max=255"`
	Modules []ModuleKey `json:"modules,omitempty" validate:"omitempty,dive,required"`
}

// TenantWithRole is a tenant as seen by one user
type TenantWithRole struct {
	Tenant
	Role *Role `json:"role,omitempty"`
}

// TenantRepository defines the interface for tenant storage. Create also
// makes owner an owner of the tenant and enables the initial modules.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant, owner uuid.UUID, modules []ModuleKey) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
}
