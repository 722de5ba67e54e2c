package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	recoveryCodePrefix = "recovery:code:"
	recoveryUserPrefix = "recovery:user:"

	fieldUserName      = "user_name"
	fieldUserDomain    = "user_domain"
	fieldTenantID      = "tenant_id"
	fieldScenario      = "scenario"
	fieldStep          = "step"
	fieldTimeCreated   = "time_created"
	fieldRemainingSets = "remaining_sets"
)

var errDuplicateCode = errors.New("recovery code already stored")

// RedisRecoveryRepository implements RecoveryDataRepository using Redis.
// Each code is a hash; every user has a sorted set of their codes scored by
// creation time. Writes touching both run in MULTI/EXEC under WATCH.
type RedisRecoveryRepository struct {
	client     *redis.Client
	tenants    repository.TenantRepository
	userStores repository.UserStoreRepository
	expiry     repository.ExpiryPolicy
	clock      *repository.CreationClock
}

var _ repository.RecoveryDataRepository = (*RedisRecoveryRepository)(nil)

// NewRedisRecoveryRepository creates a new Redis-backed recovery data repository.
// now may be nil.
func NewRedisRecoveryRepository(
	client *redis.Client,
	tenants repository.TenantRepository,
	userStores repository.UserStoreRepository,
	expiry repository.ExpiryPolicy,
	now func() time.Time,
) *RedisRecoveryRepository {
	return &RedisRecoveryRepository{
		client:     client,
		tenants:    tenants,
		userStores: userStores,
		expiry:     expiry,
		clock:      repository.NewCreationClock(now),
	}
}

func makeCodeKey(code string) string {
	return recoveryCodePrefix + code
}

// makeUserIndexKey folds case so that one index serves both case-sensitive and
// case-insensitive user stores. Exact matching is done on the hash fields.
func makeUserIndexKey(tenantID int, userDomain, userName string) string {
	return fmt.Sprintf("%s%d:%s:%s", recoveryUserPrefix, tenantID, repository.FoldCase(userDomain), repository.FoldCase(userName))
}

func (r *RedisRecoveryRepository) Store(ctx context.Context, rec *models.RecoveryRecord) error {
	if err := repository.ValidateRecord(rec); err != nil {
		return err
	}
	tenantID, err := r.tenants.TenantID(ctx, rec.User.TenantDomain)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant %s: %w", rec.User.TenantDomain, err)
	}

	domain := repository.NormalizeUserStoreDomain(rec.User.UserStoreDomain)
	key := makeCodeKey(rec.Code)
	idx := makeUserIndexKey(tenantID, domain, rec.User.UserName)
	createdAt := r.clock.Next()

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return errDuplicateCode
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				fieldUserName:      rec.User.UserName,
				fieldUserDomain:    domain,
				fieldTenantID:      tenantID,
				fieldScenario:      string(rec.Flow.Scenario()),
				fieldStep:          string(rec.Flow.Step()),
				fieldTimeCreated:   createdAt.Format(time.RFC3339Nano),
				fieldRemainingSets: rec.RemainingData,
			})
			pipe.ZAdd(ctx, idx, redis.Z{Score: float64(createdAt.UnixMicro()), Member: rec.Code})
			return nil
		})
		return err
	}, key)
	if err != nil {
		return storageError("store", err)
	}

	rec.CreatedAt = createdAt
	log.Debug().
		Str("user", rec.User.String()).
		Str("flow", rec.Flow.String()).
		Str("codePrefix", repository.MaskCode(rec.Code)).
		Msg("Stored recovery code in redis")
	return nil
}

func (r *RedisRecoveryRepository) LoadByCodeAndScenario(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return nil, err
	}

	entry, err := r.loadEntry(ctx, r.client, "load by code and scenario", code)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.tenantID != tenantID || entry.flow != flow ||
		!repository.SameUser(entry.userName, entry.userDomain, user, caseSensitive) {
		return nil, repository.NewInvalidCodeError(code)
	}

	rec := entry.record(code, user)
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *RedisRecoveryRepository) LoadByCode(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	entry, err := r.loadEntry(ctx, r.client, "load by code", code)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, repository.NewInvalidCodeError(code)
	}

	tenantDomain, err := r.tenants.TenantDomain(ctx, entry.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant id %d: %w", entry.tenantID, err)
	}
	rec := entry.record(code, models.User{
		UserName:        entry.userName,
		UserStoreDomain: entry.userDomain,
		TenantDomain:    tenantDomain,
	})
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *RedisRecoveryRepository) LoadLatestForUser(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	rec, err := r.LoadLatestForUserUnchecked(ctx, user)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *RedisRecoveryRepository) LoadLatestForUserUnchecked(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return nil, err
	}
	idx := makeUserIndexKey(tenantID, repository.NormalizeUserStoreDomain(user.UserStoreDomain), user.UserName)

	codes, err := r.client.ZRevRange(ctx, idx, 0, -1).Result()
	if err != nil {
		return nil, storageError("load latest for user", err)
	}
	for _, code := range codes {
		entry, err := r.loadEntry(ctx, r.client, "load latest for user", code)
		if err != nil {
			return nil, err
		}
		if entry == nil || entry.tenantID != tenantID ||
			!repository.SameUser(entry.userName, entry.userDomain, user, caseSensitive) {
			continue
		}
		return entry.record(code, user), nil
	}
	return nil, nil
}

// InvalidateByCode deletes a code and its index entry. Unknown codes are ignored.
func (r *RedisRecoveryRepository) InvalidateByCode(ctx context.Context, code string) error {
	key := makeCodeKey(code)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HMGet(ctx, key, fieldUserName, fieldUserDomain, fieldTenantID).Result()
		if err != nil {
			return err
		}
		userName, _ := fields[0].(string)
		userDomain, _ := fields[1].(string)
		rawTenant, _ := fields[2].(string)
		if rawTenant == "" {
			return nil
		}
		tenantID, err := strconv.Atoi(rawTenant)
		if err != nil {
			return fmt.Errorf("corrupt tenant id %q: %w", rawTenant, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, makeUserIndexKey(tenantID, userDomain, userName), code)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return storageError("invalidate code", err)
	}
	log.Debug().Str("codePrefix", repository.MaskCode(code)).Msg("Invalidated recovery code")
	return nil
}

func (r *RedisRecoveryRepository) InvalidateAllForUser(ctx context.Context, user models.User) error {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return err
	}
	idx := makeUserIndexKey(tenantID, repository.NormalizeUserStoreDomain(user.UserStoreDomain), user.UserName)

	deleted := 0
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		codes, err := tx.ZRange(ctx, idx, 0, -1).Result()
		if err != nil {
			return err
		}
		var matched []string
		for _, code := range codes {
			entry, err := r.loadEntry(ctx, tx, "invalidate user codes", code)
			if err != nil {
				return err
			}
			// Stale members are dropped along with the user's codes.
			if entry == nil || (entry.tenantID == tenantID &&
				repository.SameUser(entry.userName, entry.userDomain, user, caseSensitive)) {
				matched = append(matched, code)
			}
		}
		if len(matched) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, code := range matched {
				pipe.Del(ctx, makeCodeKey(code))
				pipe.ZRem(ctx, idx, code)
			}
			return nil
		})
		deleted = len(matched)
		return err
	}, idx)
	if err != nil {
		var se *repository.StorageError
		if errors.As(err, &se) {
			return err
		}
		return storageError("invalidate user codes", err)
	}
	log.Debug().Str("user", user.String()).Int("deleted", deleted).Msg("Invalidated recovery codes of user")
	return nil
}

type recoveryEntry struct {
	userName      string
	userDomain    string
	tenantID      int
	flow          models.RecoveryFlow
	createdAt     time.Time
	remainingData string
}

func (e *recoveryEntry) record(code string, user models.User) *models.RecoveryRecord {
	return &models.RecoveryRecord{
		User:          user,
		Code:          code,
		Flow:          e.flow,
		CreatedAt:     e.createdAt,
		RemainingData: e.remainingData,
	}
}

// loadEntry reads the hash of code. A missing code yields (nil, nil).
func (r *RedisRecoveryRepository) loadEntry(ctx context.Context, c redis.Cmdable, op, code string) (*recoveryEntry, error) {
	fields, err := c.HGetAll(ctx, makeCodeKey(code)).Result()
	if err != nil {
		return nil, storageError(op, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	tenantID, err := strconv.Atoi(fields[fieldTenantID])
	if err != nil {
		return nil, storageError(op, fmt.Errorf("corrupt tenant id for code %s: %w", repository.MaskCode(code), err))
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldTimeCreated])
	if err != nil {
		return nil, storageError(op, fmt.Errorf("corrupt creation time for code %s: %w", repository.MaskCode(code), err))
	}
	flow, err := models.ParseRecoveryFlow(fields[fieldScenario], fields[fieldStep])
	if err != nil {
		return nil, storageError("decode recovery flow", err)
	}

	remaining := fields[fieldRemainingSets]
	if strings.TrimSpace(remaining) == "" {
		remaining = ""
	}
	return &recoveryEntry{
		userName:      fields[fieldUserName],
		userDomain:    fields[fieldUserDomain],
		tenantID:      tenantID,
		flow:          flow,
		createdAt:     createdAt.UTC(),
		remainingData: remaining,
	}, nil
}

func storageError(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Recovery data storage failure")
	return &repository.StorageError{Op: op, Err: err}
}
