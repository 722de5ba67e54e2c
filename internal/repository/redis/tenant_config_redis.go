package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	tenantConfigPrefix = "recoverycfg:"
)

// RedisTenantConfigRepository serves tenant scoped configuration overrides kept
// in one Redis hash per tenant, deferring to a fallback repository for keys the
// hash does not hold.
type RedisTenantConfigRepository struct {
	client   *redis.Client
	fallback repository.TenantConfigRepository
}

var _ repository.TenantConfigAdmin = (*RedisTenantConfigRepository)(nil)

// NewRedisTenantConfigRepository creates a Redis-backed tenant config repository.
// fallback may be nil, in which case absent keys resolve to "".
func NewRedisTenantConfigRepository(client *redis.Client, fallback repository.TenantConfigRepository) *RedisTenantConfigRepository {
	return &RedisTenantConfigRepository{
		client:   client,
		fallback: fallback,
	}
}

func makeTenantConfigKey(tenantDomain string) string {
	return tenantConfigPrefix + strings.ToLower(strings.TrimSpace(tenantDomain))
}

// GetConfig returns the tenant override for key, or the fallback value.
// A Redis failure is returned rather than masked by the fallback.
func (r *RedisTenantConfigRepository) GetConfig(ctx context.Context, key, tenantDomain string) (string, error) {
	value, err := r.client.HGet(ctx, makeTenantConfigKey(tenantDomain), key).Result()
	if errors.Is(err, redis.Nil) {
		if r.fallback == nil {
			return "", nil
		}
		return r.fallback.GetConfig(ctx, key, tenantDomain)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read tenant config %s from redis: %w", key, err)
	}
	return value, nil
}

// SetConfig stores a tenant override.
func (r *RedisTenantConfigRepository) SetConfig(ctx context.Context, key, tenantDomain, value string) error {
	if err := r.client.HSet(ctx, makeTenantConfigKey(tenantDomain), key, value).Err(); err != nil {
		return fmt.Errorf("failed to store tenant config %s in redis: %w", key, err)
	}
	return nil
}

// DeleteConfig removes a tenant override. Removing an absent override is not an error.
func (r *RedisTenantConfigRepository) DeleteConfig(ctx context.Context, key, tenantDomain string) error {
	if err := r.client.HDel(ctx, makeTenantConfigKey(tenantDomain), key).Err(); err != nil {
		return fmt.Errorf("failed to delete tenant config %s from redis: %w", key, err)
	}
	return nil
}
