package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/identity"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/google/uuid"
)

type memberKey struct{ tenant, user uuid.UUID }

type accessKey struct {
	tenant, user uuid.UUID
	module       domain.ModuleKey
}

// memStore is an in-memory implementation of every repository
type memStore struct {
	mu          sync.Mutex
	tenants     map[uuid.UUID]domain.Tenant
	profiles    map[uuid.UUID]domain.Profile
	memberships map[memberKey]domain.Membership
	enablement  map[uuid.UUID]map[domain.ModuleKey]bool
	access      map[accessKey]bool

	failUpsert   bool
	failProfiles bool
}

func newMemStore() *memStore {
	return &memStore{
		tenants:     map[uuid.UUID]domain.Tenant{},
		profiles:    map[uuid.UUID]domain.Profile{},
		memberships: map[memberKey]domain.Membership{},
		enablement:  map[uuid.UUID]map[domain.ModuleKey]bool{},
		access:      map[accessKey]bool{},
	}
}

// tenants

type memTenants struct{ *memStore }

func (s memTenants) Create(ctx context.Context, t *domain.Tenant, owner uuid.UUID, modules []domain.ModuleKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = *t
	s.memberships[memberKey{t.ID, owner}] = domain.Membership{TenantID: t.ID, UserID: owner, Role: domain.RoleOwner}
	s.enablement[t.ID] = map[domain.ModuleKey]bool{}
	for _, k := range modules {
		s.enablement[t.ID][k] = true
	}
	return nil
}

func (s memTenants) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s memTenants) List(ctx context.Context) ([]domain.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Tenant{}
	for _, t := range s.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// memberships

type memMembers struct{ *memStore }

func (s memMembers) Get(ctx context.Context, tenantID, userID uuid.UUID) (*domain.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[memberKey{tenantID, userID}]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s memMembers) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]domain.MemberView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.MemberView{}
	for k, m := range s.memberships {
		if k.tenant == tenantID {
			out = append(out, domain.MemberView{Membership: m, Email: s.profiles[k.user].Email})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role.Rank() > out[j].Role.Rank() })
	return out, nil
}

func (s memMembers) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TenantWithRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.TenantWithRole{}
	for k, m := range s.memberships {
		if k.user == userID {
			role := m.Role
			out = append(out, domain.TenantWithRole{Tenant: s.tenants[k.tenant], Role: &role})
		}
	}
	return out, nil
}

func (s memMembers) ListOwners(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owners(tenantID), nil
}

func (s memMembers) owners(tenantID uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for k, m := range s.memberships {
		if k.tenant == tenantID && m.Role == domain.RoleOwner {
			out = append(out, k.user)
		}
	}
	return out
}

func (s memMembers) Upsert(ctx context.Context, m *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert {
		return domain.ErrStore
	}
	if _, ok := s.tenants[m.TenantID]; !ok {
		return domain.ErrTenantNotFound
	}
	role := m.Role
	if !policy.GuardOwnerRemoval(s.owners(m.TenantID), m.UserID, &role) {
		return domain.ErrLastOwner
	}
	s.memberships[memberKey{m.TenantID, m.UserID}] = *m
	return nil
}

func (s memMembers) ChangeRole(ctx context.Context, tenantID, userID uuid.UUID, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !policy.GuardOwnerRemoval(s.owners(tenantID), userID, &role) {
		return domain.ErrLastOwner
	}
	m, ok := s.memberships[memberKey{tenantID, userID}]
	if !ok {
		return domain.ErrMemberNotFound
	}
	m.Role = role
	s.memberships[memberKey{tenantID, userID}] = m
	return nil
}

func (s memMembers) Delete(ctx context.Context, tenantID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !policy.GuardOwnerRemoval(s.owners(tenantID), userID, nil) {
		return domain.ErrLastOwner
	}
	if _, ok := s.memberships[memberKey{tenantID, userID}]; !ok {
		return domain.ErrMemberNotFound
	}
	delete(s.memberships, memberKey{tenantID, userID})
	return nil
}

// modules

type memModules struct{ *memStore }

func (s memModules) GetEnablement(ctx context.Context, tenantID uuid.UUID) ([]domain.ModuleState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ModuleState{}
	for k, v := range s.enablement[tenantID] {
		out = append(out, domain.ModuleState{Key: k, Enabled: v})
	}
	return out, nil
}

func (s memModules) UpsertEnablement(ctx context.Context, tenantID uuid.UUID, key domain.ModuleKey, enabled bool) error {
	return s.SetEnablement(ctx, tenantID, []domain.ModuleState{{Key: key, Enabled: enabled}})
}

func (s memModules) SetEnablement(ctx context.Context, tenantID uuid.UUID, states []domain.ModuleState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enablement[tenantID] == nil {
		s.enablement[tenantID] = map[domain.ModuleKey]bool{}
	}
	for _, st := range states {
		s.enablement[tenantID][st.Key] = st.Enabled
	}
	return nil
}

func (s memModules) GetUserAccess(ctx context.Context, tenantID, userID uuid.UUID) ([]domain.ModuleOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.ModuleOverride{}
	for k, v := range s.access {
		if k.tenant == tenantID && k.user == userID {
			out = append(out, domain.ModuleOverride{Key: k.module, Enabled: v})
		}
	}
	return out, nil
}

func (s memModules) ListUserAccess(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID][]domain.ModuleOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID][]domain.ModuleOverride{}
	for k, v := range s.access {
		if k.tenant == tenantID {
			out[k.user] = append(out[k.user], domain.ModuleOverride{Key: k.module, Enabled: v})
		}
	}
	return out, nil
}

func (s memModules) UpsertUserAccess(ctx context.Context, tenantID, userID uuid.UUID, key domain.ModuleKey, enabled bool) error {
	return s.SetUserAccess(ctx, tenantID, []domain.AccessUpdate{{UserID: userID, ModuleKey: key, Enabled: enabled}})
}

func (s memModules) SetUserAccess(ctx context.Context, tenantID uuid.UUID, updates []domain.AccessUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		s.access[accessKey{tenantID, u.UserID, u.ModuleKey}] = u.Enabled
	}
	return nil
}

// profiles

type memProfiles struct{ *memStore }

func (s memProfiles) Get(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s memProfiles) Upsert(ctx context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failProfiles {
		return domain.ErrStore
	}
	existing, ok := s.profiles[p.ID]
	next := *p
	if ok {
		next.IsPlatformOwner = existing.IsPlatformOwner || p.IsPlatformOwner
		if next.FullName == "" {
			next.FullName = existing.FullName
		}
	}
	s.profiles[p.ID] = next
	return nil
}

// fakeProvider is an identity provider holding accounts in memory
type fakeProvider struct {
	mu    sync.Mutex
	users map[string]identity.User
}

func (p *fakeProvider) FindUserByEmail(ctx context.Context, email string) (*identity.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (p *fakeProvider) InviteUser(ctx context.Context, email string, metadata map[string]any) (*identity.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.users[email]; ok {
		return nil, domain.ErrAlreadyRegistered
	}
	now := time.Now()
	u := identity.User{ID: uuid.New(), Email: email, InvitedAt: &now}
	p.users[email] = u
	return &u, nil
}
