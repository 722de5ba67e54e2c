package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
)

type userStoreKey struct {
	tenantID int
	domain   string
}

// MemoryTenantRepository resolves tenants and user store case sensitivity from
// a registry filled at start-up.
type MemoryTenantRepository struct {
	byDomain      map[string]int
	byID          map[int]string
	caseSensitive map[userStoreKey]bool
	mutex         sync.RWMutex
}

var (
	_ repository.TenantRepository    = (*MemoryTenantRepository)(nil)
	_ repository.UserStoreRepository = (*MemoryTenantRepository)(nil)
)

// NewMemoryTenantRepository creates a registry holding only the super tenant.
func NewMemoryTenantRepository() *MemoryTenantRepository {
	r := &MemoryTenantRepository{
		byDomain:      make(map[string]int),
		byID:          make(map[int]string),
		caseSensitive: make(map[userStoreKey]bool),
	}
	r.RegisterTenant(repository.SuperTenantDomain, repository.SuperTenantID)
	return r
}

// RegisterTenant adds or replaces a tenant. Domains are matched ignoring case.
func (r *MemoryTenantRepository) RegisterTenant(tenantDomain string, tenantID int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	domain := strings.ToLower(strings.TrimSpace(tenantDomain))
	if old, ok := r.byDomain[domain]; ok {
		delete(r.byID, old)
	}
	r.byDomain[domain] = tenantID
	r.byID[tenantID] = domain
}

// SetUserStoreCaseSensitivity records how a user store of a tenant compares user names.
func (r *MemoryTenantRepository) SetUserStoreCaseSensitivity(tenantID int, userStoreDomain string, caseSensitive bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.caseSensitive[userStoreKey{tenantID: tenantID, domain: strings.ToUpper(userStoreDomain)}] = caseSensitive
}

func (r *MemoryTenantRepository) TenantID(ctx context.Context, tenantDomain string) (int, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.byDomain[strings.ToLower(strings.TrimSpace(tenantDomain))]
	if !ok {
		return 0, fmt.Errorf("%w: %s", repository.ErrTenantNotFound, tenantDomain)
	}
	return id, nil
}

func (r *MemoryTenantRepository) TenantDomain(ctx context.Context, tenantID int) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	domain, ok := r.byID[tenantID]
	if !ok {
		return "", fmt.Errorf("%w: id %d", repository.ErrTenantNotFound, tenantID)
	}
	return domain, nil
}

// IsCaseSensitive defaults to true for user stores that were never registered.
func (r *MemoryTenantRepository) IsCaseSensitive(ctx context.Context, userStoreDomain string, tenantID int) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	sensitive, ok := r.caseSensitive[userStoreKey{tenantID: tenantID, domain: strings.ToUpper(userStoreDomain)}]
	if !ok {
		return true, nil
	}
	return sensitive, nil
}
