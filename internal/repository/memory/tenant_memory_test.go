package memory_test

import (
	"context"
	"testing"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTenantRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("SuperTenantAlwaysRegistered", func(t *testing.T) {
		repo := memory.NewMemoryTenantRepository()

		id, err := repo.TenantID(ctx, repository.SuperTenantDomain)
		require.NoError(t, err)
		assert.Equal(t, repository.SuperTenantID, id)

		domain, err := repo.TenantDomain(ctx, repository.SuperTenantID)
		require.NoError(t, err)
		assert.Equal(t, repository.SuperTenantDomain, domain)
	})

	t.Run("RegisterTenantIgnoresCase", func(t *testing.T) {
		repo := memory.NewMemoryTenantRepository()
		repo.RegisterTenant("Wso2.com", 1)

		id, err := repo.TenantID(ctx, "WSO2.COM")
		require.NoError(t, err)
		assert.Equal(t, 1, id)

		domain, err := repo.TenantDomain(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "wso2.com", domain)
	})

	t.Run("UnknownTenant", func(t *testing.T) {
		repo := memory.NewMemoryTenantRepository()

		_, err := repo.TenantID(ctx, "missing.org")
		assert.ErrorIs(t, err, repository.ErrTenantNotFound)

		_, err = repo.TenantDomain(ctx, 42)
		assert.ErrorIs(t, err, repository.ErrTenantNotFound)
	})

	t.Run("ReRegisterMovesId", func(t *testing.T) {
		repo := memory.NewMemoryTenantRepository()
		repo.RegisterTenant("a.org", 5)
		repo.RegisterTenant("a.org", 6)

		_, err := repo.TenantDomain(ctx, 5)
		assert.ErrorIs(t, err, repository.ErrTenantNotFound)
		domain, err := repo.TenantDomain(ctx, 6)
		require.NoError(t, err)
		assert.Equal(t, "a.org", domain)
	})

	t.Run("CaseSensitivity", func(t *testing.T) {
		repo := memory.NewMemoryTenantRepository()
		repo.SetUserStoreCaseSensitivity(repository.SuperTenantID, "primary", false)

		sensitive, err := repo.IsCaseSensitive(ctx, "PRIMARY", repository.SuperTenantID)
		require.NoError(t, err)
		assert.False(t, sensitive)

		// same domain in another tenant keeps the default
		sensitive, err = repo.IsCaseSensitive(ctx, "PRIMARY", 1)
		require.NoError(t, err)
		assert.True(t, sensitive)

		sensitive, err = repo.IsCaseSensitive(ctx, "SECONDARY", repository.SuperTenantID)
		require.NoError(t, err)
		assert.True(t, sensitive)
	})
}

func TestMemoryTenantConfigRepository(t *testing.T) {
	ctx := context.Background()
	defaults := map[string]string{"Recovery.ExpiryTime": "1440"}

	t.Run("DefaultsServeEveryTenant", func(t *testing.T) {
		repo := memory.NewMemoryTenantConfigRepository(defaults)

		v, err := repo.GetConfig(ctx, "Recovery.ExpiryTime", "carbon.super")
		require.NoError(t, err)
		assert.Equal(t, "1440", v)

		v, err = repo.GetConfig(ctx, "Recovery.ExpiryTime", "other.org")
		require.NoError(t, err)
		assert.Equal(t, "1440", v)
	})

	t.Run("AbsentKeyIsEmpty", func(t *testing.T) {
		repo := memory.NewMemoryTenantConfigRepository(defaults)

		v, err := repo.GetConfig(ctx, "Unknown.Key", "carbon.super")
		require.NoError(t, err)
		assert.Empty(t, v)
	})

	t.Run("OverrideAndDelete", func(t *testing.T) {
		repo := memory.NewMemoryTenantConfigRepository(defaults)

		require.NoError(t, repo.SetConfig(ctx, "Recovery.ExpiryTime", "Other.org", "5"))

		v, err := repo.GetConfig(ctx, "Recovery.ExpiryTime", "other.org")
		require.NoError(t, err)
		assert.Equal(t, "5", v)

		v, err = repo.GetConfig(ctx, "Recovery.ExpiryTime", "carbon.super")
		require.NoError(t, err)
		assert.Equal(t, "1440", v)

		require.NoError(t, repo.DeleteConfig(ctx, "Recovery.ExpiryTime", "other.org"))
		v, err = repo.GetConfig(ctx, "Recovery.ExpiryTime", "other.org")
		require.NoError(t, err)
		assert.Equal(t, "1440", v)

		// deleting twice is fine
		require.NoError(t, repo.DeleteConfig(ctx, "Recovery.ExpiryTime", "other.org"))
	})

	t.Run("DefaultsAreCopied", func(t *testing.T) {
		src := map[string]string{"k": "1"}
		repo := memory.NewMemoryTenantConfigRepository(src)
		src["k"] = "2"

		v, err := repo.GetConfig(ctx, "k", "carbon.super")
		require.NoError(t, err)
		assert.Equal(t, "1", v)
	})
}
