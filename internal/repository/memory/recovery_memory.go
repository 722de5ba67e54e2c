package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/rs/zerolog/log"
)

type recoveryEntry struct {
	UserName      string
	UserDomain    string
	TenantID      int
	Flow          models.RecoveryFlow
	CreatedAt     time.Time
	RemainingData string
}

// MemoryRecoveryRepository implements RecoveryDataRepository in memory.
// NOT FOR PRODUCTION use: codes do not survive a restart.
type MemoryRecoveryRepository struct {
	codes      map[string]recoveryEntry
	mutex      sync.RWMutex
	tenants    repository.TenantRepository
	userStores repository.UserStoreRepository
	expiry     repository.ExpiryPolicy
	clock      *repository.CreationClock
}

var _ repository.RecoveryDataRepository = (*MemoryRecoveryRepository)(nil)

// NewMemoryRecoveryRepository creates a new in-memory recovery data repository.
// now may be nil.
func NewMemoryRecoveryRepository(
	tenants repository.TenantRepository,
	userStores repository.UserStoreRepository,
	expiry repository.ExpiryPolicy,
	now func() time.Time,
) *MemoryRecoveryRepository {
	return &MemoryRecoveryRepository{
		codes:      make(map[string]recoveryEntry),
		tenants:    tenants,
		userStores: userStores,
		expiry:     expiry,
		clock:      repository.NewCreationClock(now),
	}
}

// Store saves a new code. A code that is already stored is rejected.
func (r *MemoryRecoveryRepository) Store(ctx context.Context, rec *models.RecoveryRecord) error {
	if err := repository.ValidateRecord(rec); err != nil {
		return err
	}
	tenantID, err := r.tenants.TenantID(ctx, rec.User.TenantDomain)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant %s: %w", rec.User.TenantDomain, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.codes[rec.Code]; exists {
		return &repository.StorageError{Op: "store", Err: fmt.Errorf("duplicate recovery code %s", repository.MaskCode(rec.Code))}
	}
	createdAt := r.clock.Next()
	r.codes[rec.Code] = recoveryEntry{
		UserName:      rec.User.UserName,
		UserDomain:    repository.NormalizeUserStoreDomain(rec.User.UserStoreDomain),
		TenantID:      tenantID,
		Flow:          rec.Flow,
		CreatedAt:     createdAt,
		RemainingData: blankToEmpty(rec.RemainingData),
	}
	rec.CreatedAt = createdAt
	log.Debug().Str("user", rec.User.String()).Str("flow", rec.Flow.String()).Msg("Stored recovery code in memory")
	return nil
}

func (r *MemoryRecoveryRepository) LoadByCodeAndScenario(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return nil, err
	}

	r.mutex.RLock()
	entry, exists := r.codes[code]
	r.mutex.RUnlock()

	if !exists || entry.TenantID != tenantID || entry.Flow != flow ||
		!repository.SameUser(entry.UserName, entry.UserDomain, user, caseSensitive) {
		return nil, repository.NewInvalidCodeError(code)
	}

	rec := &models.RecoveryRecord{
		User:          user,
		Code:          code,
		Flow:          flow,
		CreatedAt:     entry.CreatedAt,
		RemainingData: entry.RemainingData,
	}
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *MemoryRecoveryRepository) LoadByCode(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	r.mutex.RLock()
	entry, exists := r.codes[code]
	r.mutex.RUnlock()
	if !exists {
		return nil, repository.NewInvalidCodeError(code)
	}

	tenantDomain, err := r.tenants.TenantDomain(ctx, entry.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant id %d: %w", entry.TenantID, err)
	}
	rec := entry.record(code, models.User{
		UserName:        entry.UserName,
		UserStoreDomain: entry.UserDomain,
		TenantDomain:    tenantDomain,
	})
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *MemoryRecoveryRepository) LoadLatestForUser(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	rec, err := r.LoadLatestForUserUnchecked(ctx, user)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *MemoryRecoveryRepository) LoadLatestForUserUnchecked(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return nil, err
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var (
		latestCode string
		latest     recoveryEntry
		found      bool
	)
	for code, entry := range r.codes {
		if entry.TenantID != tenantID || !repository.SameUser(entry.UserName, entry.UserDomain, user, caseSensitive) {
			continue
		}
		if !found || entry.CreatedAt.After(latest.CreatedAt) {
			latestCode, latest, found = code, entry, true
		}
	}
	if !found {
		return nil, nil
	}
	return latest.record(latestCode, user), nil
}

// InvalidateByCode removes a code. Unknown codes are ignored.
func (r *MemoryRecoveryRepository) InvalidateByCode(ctx context.Context, code string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.codes, code)
	return nil
}

func (r *MemoryRecoveryRepository) InvalidateAllForUser(ctx context.Context, user models.User) error {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	for code, entry := range r.codes {
		if entry.TenantID == tenantID && repository.SameUser(entry.UserName, entry.UserDomain, user, caseSensitive) {
			delete(r.codes, code)
		}
	}
	return nil
}

// CleanupExpired drops every code whose deadline has passed and returns how
// many were removed. Lookups never depend on it. Entries whose tenant or
// timeout cannot be resolved are logged and kept.
func (r *MemoryRecoveryRepository) CleanupExpired(ctx context.Context) (int, error) {
	r.mutex.RLock()
	snapshot := make(map[string]recoveryEntry, len(r.codes))
	for code, entry := range r.codes {
		snapshot[code] = entry
	}
	r.mutex.RUnlock()

	var expired []string
	skipped := 0
	for code, entry := range snapshot {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		tenantDomain, err := r.tenants.TenantDomain(ctx, entry.TenantID)
		if err != nil {
			log.Warn().Err(err).Int("tenantId", entry.TenantID).Str("codePrefix", repository.MaskCode(code)).
				Msg("Skipping recovery code in sweep, tenant unresolved")
			skipped++
			continue
		}
		isExpired, err := r.expiry.IsExpired(ctx, tenantDomain, entry.Flow, entry.CreatedAt, entry.RemainingData)
		if err != nil {
			log.Warn().Err(err).Str("tenant", tenantDomain).Str("flow", entry.Flow.String()).
				Str("codePrefix", repository.MaskCode(code)).
				Msg("Skipping recovery code in sweep, expiry unresolved")
			skipped++
			continue
		}
		if isExpired {
			expired = append(expired, code)
		}
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	removed := 0
	for _, code := range expired {
		// Re-check: the code may have been invalidated and reissued meanwhile.
		if entry, ok := r.codes[code]; ok && entry.CreatedAt.Equal(snapshot[code].CreatedAt) {
			delete(r.codes, code)
			removed++
		}
	}
	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Int("removed", removed).Msg("Sweep left unresolved recovery codes in place")
	}
	return removed, nil
}

func (e recoveryEntry) record(code string, user models.User) *models.RecoveryRecord {
	return &models.RecoveryRecord{
		User:          user,
		Code:          code,
		Flow:          e.Flow,
		CreatedAt:     e.CreatedAt,
		RemainingData: e.RemainingData,
	}
}

func blankToEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
