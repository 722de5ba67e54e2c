package repository

import (
	"context"
	"errors"
)

// ErrTenantNotFound is returned when a tenant domain or id is not registered.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrConfiguration is returned when a configuration value is missing or malformed.
var ErrConfiguration = errors.New("invalid recovery configuration")

// SuperTenantDomain and SuperTenantID identify the tenant that always exists.
const (
	SuperTenantDomain = "carbon.super"
	SuperTenantID     = -1234
)

// TenantRepository resolves tenant domains to numeric ids and back.
type TenantRepository interface {
	TenantID(ctx context.Context, tenantDomain string) (int, error)
	TenantDomain(ctx context.Context, tenantID int) (string, error)
}

// UserStoreRepository answers whether a user store matches user names case-sensitively.
type UserStoreRepository interface {
	IsCaseSensitive(ctx context.Context, userStoreDomain string, tenantID int) (bool, error)
}

// TenantConfigRepository reads tenant scoped configuration values.
// An absent key yields an empty string and no error.
type TenantConfigRepository interface {
	GetConfig(ctx context.Context, key, tenantDomain string) (string, error)
}

// TenantConfigAdmin administers tenant scoped overrides.
type TenantConfigAdmin interface {
	TenantConfigRepository
	SetConfig(ctx context.Context, key, tenantDomain, value string) error
	DeleteConfig(ctx context.Context, key, tenantDomain string) error
}
