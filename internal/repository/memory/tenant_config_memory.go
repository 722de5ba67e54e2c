package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
)

// MemoryTenantConfigRepository serves process wide defaults with optional
// per-tenant overrides held in memory.
type MemoryTenantConfigRepository struct {
	defaults  map[string]string
	overrides map[string]map[string]string
	mutex     sync.RWMutex
}

var _ repository.TenantConfigAdmin = (*MemoryTenantConfigRepository)(nil)

// NewMemoryTenantConfigRepository creates a config repository seeded with defaults.
func NewMemoryTenantConfigRepository(defaults map[string]string) *MemoryTenantConfigRepository {
	d := make(map[string]string, len(defaults))
	for k, v := range defaults {
		d[k] = v
	}
	return &MemoryTenantConfigRepository{
		defaults:  d,
		overrides: make(map[string]map[string]string),
	}
}

func tenantKey(tenantDomain string) string {
	return strings.ToLower(strings.TrimSpace(tenantDomain))
}

func (r *MemoryTenantConfigRepository) GetConfig(ctx context.Context, key, tenantDomain string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if values, ok := r.overrides[tenantKey(tenantDomain)]; ok {
		if v, ok := values[key]; ok {
			return v, nil
		}
	}
	return r.defaults[key], nil
}

func (r *MemoryTenantConfigRepository) SetConfig(ctx context.Context, key, tenantDomain, value string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t := tenantKey(tenantDomain)
	if r.overrides[t] == nil {
		r.overrides[t] = make(map[string]string)
	}
	r.overrides[t][key] = value
	return nil
}

func (r *MemoryTenantConfigRepository) DeleteConfig(ctx context.Context, key, tenantDomain string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	t := tenantKey(tenantDomain)
	delete(r.overrides[t], key)
	if len(r.overrides[t]) == 0 {
		delete(r.overrides, t)
	}
	return nil
}
