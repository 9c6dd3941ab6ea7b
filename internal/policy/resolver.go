package policy

import "github.com/Rrens/muni-admin/internal/domain"

// ResolveEffectiveModules intersects tenant enablement with per-user
// overrides. Overrides can only narrow what the tenant enables: a false row
// removes a module, a true row is a no-op and rows for modules the tenant
// has not enabled are ignored. The result follows catalog order.
func ResolveEffectiveModules(tenantEnabled map[domain.ModuleKey]bool, overrides []domain.ModuleOverride, catalog []domain.ModuleKey) []domain.ModuleKey {
	enabled := make(map[domain.ModuleKey]bool, len(catalog))
	for _, key := range catalog {
		if tenantEnabled[key] {
			enabled[key] = true
		}
	}

	for _, o := range overrides {
		if !enabled[o.Key] {
			continue
		}
		if !o.Enabled {
			delete(enabled, o.Key)
		}
	}

	result := make([]domain.ModuleKey, 0, len(enabled))
	for _, key := range catalog {
		if enabled[key] {
			result = append(result, key)
		}
	}
	return result
}

// EnablementMap converts stored enablement rows into a lookup map
func EnablementMap(states []domain.ModuleState) map[domain.ModuleKey]bool {
	m := make(map[domain.ModuleKey]bool, len(states))
	for _, s := range states {
		m[s.Key] = s.Enabled
	}
	return m
}

// GroupByCategory buckets resolved modules by catalog category. Keys that
// are not in the catalog land in the "other" bucket.
func GroupByCategory(keys []domain.ModuleKey) map[domain.ModuleCategory][]domain.ModuleKey {
	groups := make(map[domain.ModuleCategory][]domain.ModuleKey)
	for _, key := range keys {
		category := domain.CategoryOther
		if m, ok := domain.LookupModule(key); ok {
			category = m.Category
		}
		groups[category] = append(groups[category], key)
	}
	return groups
}
