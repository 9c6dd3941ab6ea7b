package service

import (
	"context"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTenantRepository mocks the TenantRepository interface
type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant, owner uuid.UUID, modules []domain.ModuleKey) error {
	args := m.Called(ctx, tenant, owner, modules)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Tenant), args.Error(1)
}

// MockMembershipRepository mocks the MembershipRepository interface
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Get(ctx context.Context, tenantID, userID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberView, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]domain.MemberView), args.Error(1)
}

func (m *MockMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TenantWithRole, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.TenantWithRole), args.Error(1)
}

func (m *MockMembershipRepository) ListOwners(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockMembershipRepository) Upsert(ctx context.Context, membership *domain.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role domain.Role) error {
	args := m.Called(ctx, tenantID, userID, role)
	return args.Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, tenantID, userID uuid.UUID) error {
	args := m.Called(ctx, tenantID, userID)
	return args.Error(0)
}

// MockModuleRepository mocks the ModuleRepository interface
type MockModuleRepository struct {
	mock.Mock
}

func (m *MockModuleRepository) GetEnablement(ctx context.Context, tenantID uuid.UUID) ([]domain.ModuleState, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]domain.ModuleState), args.Error(1)
}

func (m *MockModuleRepository) UpsertEnablement(ctx context.Context, tenantID uuid.UUID, key domain.ModuleKey, enabled bool) error {
	args := m.Called(ctx, tenantID, key, enabled)
	return args.Error(0)
}

func (m *MockModuleRepository) SetEnablement(ctx context.Context, tenantID uuid.UUID, states []domain.ModuleState) error {
	args := m.Called(ctx, tenantID, states)
	return args.Error(0)
}

func (m *MockModuleRepository) GetUserAccess(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.ModuleOverride, error) {
	args := m.Called(ctx, tenantID, userID)
	return args.Get(0).([]domain.ModuleOverride), args.Error(1)
}

func (m *MockModuleRepository) ListUserAccess(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID][]domain.ModuleOverride, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(map[uuid.UUID][]domain.ModuleOverride), args.Error(1)
}

func (m *MockModuleRepository) UpsertUserAccess(ctx context.Context, tenantID, userID uuid.UUID, key domain.ModuleKey, enabled bool) error {
	args := m.Called(ctx, tenantID, userID, key, enabled)
	return args.Error(0)
}

func (m *MockModuleRepository) SetUserAccess(ctx context.Context, tenantID uuid.UUID, updates []domain.AccessUpdate) error {
	args := m.Called(ctx, tenantID, updates)
	return args.Error(0)
}

// MockProfileRepository mocks the ProfileRepository interface
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// MockProvider mocks the identity Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockProvider) InviteUser(ctx context.Context, email string, metadata map[string]any) (*identity.User, error) {
	args := m.Called(ctx, email, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

// MockLocker mocks the InviteLocker interface
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, email string) (func(context.Context), error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context)), args.Error(1)
}

// MockSigner mocks the SelectionSigner interface
type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) GenerateTenantSelection(userID, tenantID uuid.UUID) (string, error) {
	args := m.Called(userID, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockSigner) ValidateTenantSelection(token string, userID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(token, userID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// fixture wires every service against fresh mocks
type fixture struct {
	tenants  *MockTenantRepository
	members  *MockMembershipRepository
	modules  *MockModuleRepository
	profiles *MockProfileRepository
	provider *MockProvider
	locker   *MockLocker
	signer   *MockSigner

	access    *AccessService
	tenantSvc *TenantService
	memberSvc *MembershipService
	moduleSvc *ModuleService
	inviteSvc *InviteService
}

func newFixture() *fixture {
	f := &fixture{
		tenants:  new(MockTenantRepository),
		members:  new(MockMembershipRepository),
		modules:  new(MockModuleRepository),
		profiles: new(MockProfileRepository),
		provider: new(MockProvider),
		locker:   new(MockLocker),
		signer:   new(MockSigner),
	}
	f.access = NewAccessService(f.tenants, f.members, f.modules, f.profiles, nil)
	f.tenantSvc = NewTenantService(f.tenants, f.members, f.access, f.signer)
	f.memberSvc = NewMembershipService(f.members, f.access, nil)
	f.moduleSvc = NewModuleService(f.modules, f.members, f.access)
	f.inviteSvc = NewInviteService(f.provider, f.profiles, f.locker, f.access, f.memberSvc, nil)
	f.inviteSvc.lockWait = 0
	f.inviteSvc.lockRetries = 2
	return f
}

// asMember stubs the profile and membership lookups for a caller
func (f *fixture) asMember(tenantID, userID uuid.UUID, role domain.Role) {
	f.profiles.On("Get", mock.Anything, userID).Return(&domain.Profile{ID: userID}, nil)
	f.members.On("Get", mock.Anything, tenantID, userID).Return(&domain.Membership{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
	}, nil)
}

// asOutsider stubs a caller with no profile and no membership
func (f *fixture) asOutsider(tenantID, userID uuid.UUID) {
	f.profiles.On("Get", mock.Anything, userID).Return(nil, nil)
	f.members.On("Get", mock.Anything, tenantID, userID).Return(nil, nil)
}

// asPlatformOwner stubs a platform owner with no membership in tenantID
func (f *fixture) asPlatformOwner(tenantID, userID uuid.UUID) {
	f.profiles.On("Get", mock.Anything, userID).Return(&domain.Profile{ID: userID, IsPlatformOwner: true}, nil)
	f.members.On("Get", mock.Anything, tenantID, userID).Return(nil, nil)
}
