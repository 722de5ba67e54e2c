package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
)

// CreationClock hands out UTC creation timestamps at microsecond precision,
// each strictly after the previous one. Ordering by creation time is then
// total within a single store instance.
type CreationClock struct {
	now  func() time.Time
	mu   sync.Mutex
	last time.Time
}

func NewCreationClock(now func() time.Time) *CreationClock {
	if now == nil {
		now = time.Now
	}
	return &CreationClock{now: now}
}

func (c *CreationClock) Next() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

// NormalizeUserStoreDomain is applied to user store domains on write and on every lookup.
func NormalizeUserStoreDomain(domain string) string {
	return strings.ToUpper(domain)
}

// FoldCase returns the Unicode case folding of s. Case-insensitive user stores
// compare identities by it in every store.
func FoldCase(s string) string {
	// A Caser is stateful, so one is built per call.
	return cases.Fold().String(s)
}

// SameUser compares a stored identity with a requested one under the user
// store's case rules. Tenants are compared by the caller.
func SameUser(storedName, storedDomain string, user models.User, caseSensitive bool) bool {
	domain := NormalizeUserStoreDomain(user.UserStoreDomain)
	if caseSensitive {
		return storedName == user.UserName && storedDomain == domain
	}
	return FoldCase(storedName) == FoldCase(user.UserName) && FoldCase(storedDomain) == FoldCase(domain)
}

// ResolveUser returns the tenant id of user and whether its user store
// compares names case-sensitively.
func ResolveUser(ctx context.Context, tenants TenantRepository, userStores UserStoreRepository, user models.User) (int, bool, error) {
	tenantID, err := tenants.TenantID(ctx, user.TenantDomain)
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve tenant %s: %w", user.TenantDomain, err)
	}
	domain := NormalizeUserStoreDomain(user.UserStoreDomain)
	caseSensitive, err := userStores.IsCaseSensitive(ctx, domain, tenantID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read case sensitivity of user store %s: %w", domain, err)
	}
	return tenantID, caseSensitive, nil
}

// CheckExpiry returns an expired code error for rec when policy says its deadline has passed.
func CheckExpiry(ctx context.Context, policy ExpiryPolicy, rec *models.RecoveryRecord) error {
	expired, err := policy.IsExpired(ctx, rec.User.TenantDomain, rec.Flow, rec.CreatedAt, rec.RemainingData)
	if err != nil {
		return fmt.Errorf("failed to evaluate expiry of recovery code: %w", err)
	}
	if expired {
		return NewExpiredCodeError(rec.Code)
	}
	return nil
}

// ValidateRecord rejects records that cannot be stored.
func ValidateRecord(rec *models.RecoveryRecord) error {
	if rec == nil || rec.Code == "" || rec.Flow.IsZero() {
		return fmt.Errorf("invalid recovery record: code and flow must be set")
	}
	return nil
}

// MaskCode keeps recovery codes out of logs.
func MaskCode(code string) string {
	if len(code) <= 4 {
		return "****"
	}
	return code[:4] + "..."
}
