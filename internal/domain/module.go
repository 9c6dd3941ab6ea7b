package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ModuleKey identifies an optional feature area
type ModuleKey string

// ModuleCategory groups modules for display
type ModuleCategory string

const (
	CategoryOperations     ModuleCategory = "operations"
	CategoryWater          ModuleCategory = "water"
	CategoryWastewater     ModuleCategory = "wastewater"
	CategoryPublicWorks    ModuleCategory = "public_works"
	CategoryFinance        ModuleCategory = "finance"
	CategoryCommunity      ModuleCategory = "community"
	CategoryCompliance     ModuleCategory = "compliance"
	CategoryAdministration ModuleCategory = "administration"
	CategoryOther          ModuleCategory = "other"
)

// Categories lists the display categories in order
var Categories = []ModuleCategory{
	CategoryOperations,
	CategoryWater,
	CategoryWastewater,
	CategoryPublicWorks,
	CategoryFinance,
	CategoryCommunity,
	CategoryCompliance,
	CategoryAdministration,
	CategoryOther,
}

// Module describes a catalog entry
type Module struct {
	Key         ModuleKey      `json:"key"`
	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Category    ModuleCategory `json:"category"`
}

// Catalog is the static module catalog in display order.
var Catalog = []Module{
	{"work_orders", "Work Orders", "Create, assign and close field work orders", CategoryOperations},
	{"service_requests", "Service Requests", "Resident-reported issues and follow-up", CategoryOperations},
	{"dispatch", "Dispatch", "Real-time crew dispatch board", CategoryOperations},
	{"crew_scheduling", "Crew Scheduling", "Shifts, on-call rotations and crew assignments", CategoryOperations},

	{"water_meters", "Water Meters", "Meter inventory, reads and change-outs", CategoryWater},
	{"sampling", "Sampling", "Water quality sampling plans and lab results", CategoryWater},
	{"hydrant_flushing", "Hydrant Flushing", "Flushing routes and hydrant maintenance", CategoryWater},
	{"backflow", "Backflow", "Backflow device testing and certification", CategoryWater},

	{"lift_stations", "Lift Stations", "Lift station rounds and alarms", CategoryWastewater},
	{"sewer_inspections", "Sewer Inspections", "Main and manhole inspection records", CategoryWastewater},

	{"asset_management", "Asset Management", "Infrastructure asset register and condition", CategoryPublicWorks},
	{"fleet", "Fleet", "Vehicles, equipment and maintenance intervals", CategoryPublicWorks},
	{"street_maintenance", "Street Maintenance", "Potholes, signage and sweeping", CategoryPublicWorks},
	{"snow_removal", "Snow Removal", "Plow routes and storm events", CategoryPublicWorks},
	{"facilities", "Facilities", "Municipal buildings and parks", CategoryPublicWorks},
	{"cemetery", "Cemetery", "Plots, interments and records", CategoryPublicWorks},

	{"utility_billing", "Utility Billing", "Accounts, rates and billing cycles", CategoryFinance},
	{"purchasing", "Purchasing", "Requisitions and purchase orders", CategoryFinance},
	{"inventory", "Inventory", "Parts and materials stock", CategoryFinance},

	{"public_portal", "Public Portal", "Resident-facing request portal", CategoryCommunity},
	{"notifications", "Notifications", "Resident alerts and notices", CategoryCommunity},
	{"permits", "Permits", "Permit applications and approvals", CategoryCommunity},

	{"regulatory_reports", "Regulatory Reports", "State and federal compliance reporting", CategoryCompliance},
	{"safety_incidents", "Safety Incidents", "Incident and near-miss reporting", CategoryCompliance},
	{"inspections", "Inspections", "Scheduled inspections and checklists", CategoryCompliance},

	{"documents", "Documents", "Shared document library", CategoryAdministration},
	{"time_tracking", "Time Tracking", "Timesheets and labor hours", CategoryAdministration},
	{"gis_maps", "GIS Maps", "Map layers and spatial lookup", CategoryAdministration},

	{"analytics", "Analytics", "Dashboards and exports", CategoryOther},
}

var catalogIndex = func() map[ModuleKey]Module {
	idx := make(map[ModuleKey]Module, len(Catalog))
	for _, m := range Catalog {
		idx[m.Key] = m
	}
	return idx
}()

// CatalogKeys returns the catalog keys in display order
func CatalogKeys() []ModuleKey {
	keys := make([]ModuleKey, len(Catalog))
	for i, m := range Catalog {
		keys[i] = m.Key
	}
	return keys
}

// LookupModule returns the catalog entry for key
func LookupModule(key ModuleKey) (Module, bool) {
	m, ok := catalogIndex[key]
	return m, ok
}

// ParseModuleKey validates a module key against the catalog
func ParseModuleKey(s string) (ModuleKey, error) {
	key := ModuleKey(s)
	if _, ok := catalogIndex[key]; !ok {
		return "", fmt.Errorf("%w: unknown module %q", ErrValidation, s)
	}
	return key, nil
}

// ModuleState is one (module, enabled) pair
type ModuleState struct {
	Key     ModuleKey `json:"key"`
	Enabled bool      `json:"enabled"`
}

// ModuleOverride is a per-user override row
type ModuleOverride = ModuleState

// ModuleEnablementUpdate replaces a tenant's enablement. Keys that are
// missing from Modules are written as disabled.
type ModuleEnablementUpdate struct {
	Modules map[ModuleKey]bool `json:"modules" validate:"required"`
}

// ModuleToggle sets a single flag
type ModuleToggle struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// MemberModules is one member's effective modules after an override change
type MemberModules struct {
	UserID    uuid.UUID   `json:"user_id"`
	Effective []ModuleKey `json:"effective"`
}

// AccessUpdate is one cell of the per-user access matrix
type AccessUpdate struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	ModuleKey ModuleKey `json:"module_key" validate:"required"`
	Enabled   bool      `json:"enabled"`
}

// AccessMatrixUpdate is the structured form of the access matrix
type AccessMatrixUpdate struct {
	Updates []AccessUpdate `json:"updates" validate:"required,dive"`
}

// MemberAccess is one member's row in the access matrix
type MemberAccess struct {
	Member    MemberView       `json:"member"`
	Overrides []ModuleOverride `json:"overrides"`
	Effective []ModuleKey      `json:"effective"`
}

// AccessMatrix is the admin view of per-user module access
type AccessMatrix struct {
	TenantID uuid.UUID      `json:"tenant_id"`
	Enabled  []ModuleKey    `json:"enabled"`
	Members  []MemberAccess `json:"members"`
}

// ModuleRepository defines storage for tenant enablement and user overrides
type ModuleRepository interface {
	GetEnablement(ctx context.Context, tenantID uuid.UUID) ([]ModuleState, error)
	UpsertEnablement(ctx context.Context, tenantID uuid.UUID, key ModuleKey, enabled bool) error
	SetEnablement(ctx context.Context, tenantID uuid.UUID, states []ModuleState) error
	GetUserAccess(ctx context.Context, tenantID, userID uuid.UUID) ([]ModuleOverride, error)
	ListUserAccess(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID][]ModuleOverride, error)
	UpsertUserAccess(ctx context.Context, tenantID, userID uuid.UUID, key ModuleKey, enabled bool) error
	SetUserAccess(ctx context.Context, tenantID uuid.UUID, updates []AccessUpdate) error
}
