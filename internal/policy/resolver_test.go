package policy_test

import (
	"testing"

	"github.com/Rrens/muni-admin/internal/domain"
	"github.com/Rrens/muni-admin/internal/policy"
	"github.com/stretchr/testify/assert"
)

func keys(ks ...string) []domain.ModuleKey {
	out := make([]domain.ModuleKey, len(ks))
	for i, k := range ks {
		out[i] = domain.ModuleKey(k)
	}
	return out
}

func TestResolveEffectiveModules_Scenarios(t *testing.T) {
	catalog := domain.CatalogKeys()
	villageA := map[domain.ModuleKey]bool{"work_orders": true, "sampling": false}

	tests := []struct {
		name      string
		overrides []domain.ModuleOverride
		want      []domain.ModuleKey
	}{
		{"no overrides", nil, keys("work_orders")},
		{"override removes module", []domain.ModuleOverride{{Key: "work_orders", Enabled: false}}, keys()},
		{"override for disabled module ignored", []domain.ModuleOverride{{Key: "sampling", Enabled: true}}, keys("work_orders")},
		{"true override is a no-op", []domain.ModuleOverride{{Key: "work_orders", Enabled: true}}, keys("work_orders")},
		{"unknown override key ignored", []domain.ModuleOverride{{Key: "teleportation", Enabled: true}}, keys("work_orders")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.ResolveEffectiveModules(villageA, tt.overrides, catalog)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEffectiveModules_CatalogOrder(t *testing.T) {
	catalog := keys("a", "b", "c", "d")
	enabled := map[domain.ModuleKey]bool{"d": true, "b": true, "a": true, "zz": true}

	got := policy.ResolveEffectiveModules(enabled, []domain.ModuleOverride{{Key: "b", Enabled: false}}, catalog)

	assert.Equal(t, keys("a", "d"), got)
}

func TestResolveEffectiveModules_DisabledNeverVisible(t *testing.T) {
	catalog := domain.CatalogKeys()
	enabled := map[domain.ModuleKey]bool{}
	for i, k := range catalog {
		enabled[k] = i%2 == 0
	}

	overrides := make([]domain.ModuleOverride, 0, len(catalog))
	for _, k := range catalog {
		overrides = append(overrides, domain.ModuleOverride{Key: k, Enabled: true})
	}

	got := policy.ResolveEffectiveModules(enabled, overrides, catalog)
	for _, k := range got {
		assert.True(t, enabled[k], "%s is disabled for the tenant but visible", k)
	}
	assert.Len(t, got, (len(catalog)+1)/2)
}

func TestResolveEffectiveModules_EmptyOverridesEqualTenantSet(t *testing.T) {
	catalog := domain.CatalogKeys()
	enabled := map[domain.ModuleKey]bool{"fleet": true, "permits": true, "analytics": true, "sampling": false}

	got := policy.ResolveEffectiveModules(enabled, []domain.ModuleOverride{}, catalog)

	assert.Equal(t, keys("fleet", "permits", "analytics"), got)
}

func TestResolveEffectiveModules_NeverNil(t *testing.T) {
	got := policy.ResolveEffectiveModules(nil, nil, domain.CatalogKeys())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEnablementMap_Idempotent(t *testing.T) {
	once := policy.EnablementMap([]domain.ModuleState{{Key: "fleet", Enabled: true}})
	twice := policy.EnablementMap([]domain.ModuleState{{Key: "fleet", Enabled: true}, {Key: "fleet", Enabled: true}})

	catalog := domain.CatalogKeys()
	assert.Equal(t,
		policy.ResolveEffectiveModules(once, nil, catalog),
		policy.ResolveEffectiveModules(twice, nil, catalog),
	)
}

func TestGroupByCategory(t *testing.T) {
	groups := policy.GroupByCategory(keys("work_orders", "sampling", "backflow", "analytics", "mystery"))

	assert.Equal(t, keys("work_orders"), groups[domain.CategoryOperations])
	assert.Equal(t, keys("sampling", "backflow"), groups[domain.CategoryWater])
	assert.Equal(t, keys("analytics", "mystery"), groups[domain.CategoryOther])
	assert.NotContains(t, groups, domain.CategoryFinance)
}
