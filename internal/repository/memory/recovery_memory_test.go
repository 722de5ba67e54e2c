package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/memory"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/repotest"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRecoveryRepository(t *testing.T, env *repotest.Env) *memory.MemoryRecoveryRepository {
	t.Helper()
	return memory.NewMemoryRecoveryRepository(env.Tenants, env.Tenants, env.Expiry, env.Clock.Now)
}

func TestMemoryRecoveryRepository(t *testing.T) {
	repotest.RunRecoveryRepositoryTests(t, func(t *testing.T, env *repotest.Env) repository.RecoveryDataRepository {
		return newMemoryRecoveryRepository(t, env)
	})
}

func TestMemoryRecoveryRepository_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	tenants := memory.NewMemoryTenantRepository()
	config := memory.NewMemoryTenantConfigRepository(map[string]string{
		models.ConfigAskPasswordExpiryTime:      "1440",
		models.ConfigSelfSignUpSMSOTPExpiryTime: "5",
	})
	clock := &repotest.Clock{Current: repotest.T0}
	expiry := service.NewExpiryResolver(config, service.WithClock(clock.Now))
	repo := memory.NewMemoryRecoveryRepository(tenants, tenants, expiry, clock.Now)

	require.NoError(t, repo.Store(ctx, &models.RecoveryRecord{User: repotest.Alice, Code: "long", Flow: models.FlowAskPassword}))
	require.NoError(t, repo.Store(ctx, &models.RecoveryRecord{
		User: repotest.Alice, Code: "short", Flow: models.FlowSelfSignUpConfirm, RemainingData: models.ChannelSMS,
	}))

	clock.Current = repotest.T0.Add(30 * time.Minute)
	removed, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.LoadByCode(ctx, "short")
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
	_, err = repo.LoadByCode(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryRecoveryRepository_CleanupExpiredSkipsUnresolved(t *testing.T) {
	ctx := context.Background()
	env := repotest.NewEnv()
	repo := newMemoryRecoveryRepository(t, env)

	broken := models.User{UserName: "bob", UserStoreDomain: "PRIMARY", TenantDomain: "wso2.com"}
	require.NoError(t, env.Config.SetConfig(ctx, models.ConfigAskPasswordExpiryTime, "wso2.com", "soon"))
	require.NoError(t, repo.Store(ctx, &models.RecoveryRecord{User: broken, Code: "broken", Flow: models.FlowAskPassword}))
	require.NoError(t, repo.Store(ctx, &models.RecoveryRecord{
		User: repotest.Alice, Code: "short", Flow: models.FlowSelfSignUpConfirm, RemainingData: models.ChannelSMS,
	}))

	env.Clock.Current = repotest.T0.Add(30 * time.Minute)
	removed, err := repo.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.LoadByCode(ctx, "short")
	assert.ErrorIs(t, err, repository.ErrInvalidCode)
	got, err := repo.LoadLatestForUserUnchecked(ctx, broken)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "broken", got.Code)
}
