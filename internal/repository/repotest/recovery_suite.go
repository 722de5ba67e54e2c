// Package repotest holds behaviour tests shared by every RecoveryDataRepository.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/memory"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// T0 is the wall clock every suite starts at.
var T0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Clock is a settable time source shared by the store and the expiry resolver.
type Clock struct {
	Current time.Time
}

func (c *Clock) Now() time.Time { return c.Current }

// Env is what a store factory receives.
type Env struct {
	Tenants *memory.MemoryTenantRepository
	Config  *memory.MemoryTenantConfigRepository
	Expiry  *service.ExpiryResolver
	Clock   *Clock
}

// Factory builds the store under test on top of env.
type Factory func(t *testing.T, env *Env) repository.RecoveryDataRepository

var Alice = models.User{UserName: "alice", UserStoreDomain: "PRIMARY", TenantDomain: "carbon.super"}

// NewEnv returns the fixture every suite run starts from.
func NewEnv() *Env {
	tenants := memory.NewMemoryTenantRepository()
	tenants.RegisterTenant("wso2.com", 1)
	config := memory.NewMemoryTenantConfigRepository(map[string]string{
		models.ConfigExpiryTime:                       "1440",
		models.ConfigAskPasswordExpiryTime:            "1440",
		models.ConfigSelfSignUpVerificationExpiryTime: "60",
		models.ConfigSelfSignUpSMSOTPExpiryTime:       "5",
		models.ConfigPasswordRecoverySMSOTPExpiryTime: "2",
	})
	clock := &Clock{Current: T0}
	return &Env{
		Tenants: tenants,
		Config:  config,
		Expiry:  service.NewExpiryResolver(config, service.WithClock(clock.Now)),
		Clock:   clock,
	}
}

func record(user models.User, code string, flow models.RecoveryFlow, remaining string) *models.RecoveryRecord {
	return &models.RecoveryRecord{User: user, Code: code, Flow: flow, RemainingData: remaining}
}

// RunRecoveryRepositoryTests exercises the lifecycle contract of a recovery store.
func RunRecoveryRepositoryTests(t *testing.T, factory Factory) {
	ctx := context.Background()
	setup := func(t *testing.T) (repository.RecoveryDataRepository, *Env) {
		env := NewEnv()
		return factory(t, env), env
	}

	t.Run("RoundTrip", func(t *testing.T) {
		repo, _ := setup(t)
		rec := record(Alice, "code-1", models.FlowPasswordRecoveryUpdate, "set-1,set-2")
		require.NoError(t, repo.Store(ctx, rec))
		assert.True(t, rec.CreatedAt.Equal(T0))

		got, err := repo.LoadByCodeAndScenario(ctx, Alice, models.FlowPasswordRecoveryUpdate, "code-1")
		require.NoError(t, err)
		assert.Equal(t, Alice, got.User)
		assert.Equal(t, models.FlowPasswordRecoveryUpdate, got.Flow)
		assert.Equal(t, "set-1,set-2", got.RemainingData)
		assert.True(t, got.CreatedAt.Equal(T0))
	})

	t.Run("ExpiryBoundary", func(t *testing.T) {
		repo, env := setup(t)
		require.NoError(t, repo.Store(ctx, record(Alice, "ask-1", models.FlowAskPassword, "")))

		env.Clock.Current = T0.Add(1440 * time.Minute)
		_, err := repo.LoadByCodeAndScenario(ctx, Alice, models.FlowAskPassword, "ask-1")
		require.NoError(t, err)

		env.Clock.Current = T0.Add(1441 * time.Minute)
		_, err = repo.LoadByCodeAndScenario(ctx, Alice, models.FlowAskPassword, "ask-1")
		assert.ErrorIs(t, err, repository.ErrExpiredCode)
	})

	t.Run("SMSChannelUsesOTPTimeout", func(t *testing.T) {
		repo, env := setup(t)
		require.NoError(t, repo.Store(ctx, record(Alice, "otp-1", models.FlowSelfSignUpConfirm, models.ChannelSMS)))
		require.NoError(t, repo.Store(ctx, record(Alice, "mail-1", models.FlowSelfSignUpConfirm, models.ChannelEmail)))

		env.Clock.Current = T0.Add(6 * time.Minute)
		_, err := repo.LoadByCodeAndScenario(ctx, Alice, models.FlowSelfSignUpConfirm, "otp-1")
		assert.ErrorIs(t, err, repository.ErrExpiredCode)
		_, err = repo.LoadByCodeAndScenario(ctx, Alice, models.FlowSelfSignUpConfirm, "mail-1")
		assert.NoError(t, err)
	})

	t.Run("MismatchIsInvalid", func(t *testing.T) {
		repo, _ := setup(t)
		require.NoError(t, repo.Store(ctx, record(Alice, "code-1", models.FlowAskPassword, "")))

		bob := Alice
		bob.UserName = "bob"
		_, err := repo.LoadByCodeAndScenario(ctx, bob, models.FlowAskPassword, "code-1")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)
		_, err = repo.LoadByCodeAndScenario(ctx, Alice, models.FlowUsernameRecovery, "code-1")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)
		_, err = repo.LoadByCodeAndScenario(ctx, Alice, models.FlowAskPassword, "code-2")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)

		var codeErr *repository.CodeError
		require.ErrorAs(t, err, &codeErr)
		assert.Equal(t, "code-2", codeErr.Code)
	})

	t.Run("DuplicateCodeIsStorageError", func(t *testing.T) {
		repo, _ := setup(t)
		require.NoError(t, repo.Store(ctx, record(Alice, "dup", models.FlowAskPassword, "")))
		err := repo.Store(ctx, record(Alice, "dup", models.FlowAskPassword, ""))
		assert.ErrorIs(t, err, repository.ErrStorage)
	})

	t.Run("UnknownTenant", func(t *testing.T) {
		repo, _ := setup(t)
		ghost := Alice
		ghost.TenantDomain = "ghost.org"
		assert.ErrorIs(t, repo.Store(ctx, record(ghost, "c", models.FlowAskPassword, "")), repository.ErrTenantNotFound)
	})

	t.Run("LoadByCodeHydratesUser", func(t *testing.T) {
		repo, _ := setup(t)
		user := models.User{UserName: "Carol", UserStoreDomain: "ldap", TenantDomain: "wso2.com"}
		require.NoError(t, repo.Store(ctx, record(user, "c-1", models.FlowUsernameRecovery, "")))

		got, err := repo.LoadByCode(ctx, "c-1")
		require.NoError(t, err)
		assert.Equal(t, models.User{UserName: "Carol", UserStoreDomain: "LDAP", TenantDomain: "wso2.com"}, got.User)

		_, err = repo.LoadByCode(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)
	})

	t.Run("LatestAndUnchecked", func(t *testing.T) {
		repo, env := setup(t)
		got, err := repo.LoadLatestForUser(ctx, Alice)
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, repo.Store(ctx, record(Alice, "old", models.FlowAskPassword, "")))
		require.NoError(t, repo.Store(ctx, record(Alice, "new", models.FlowSelfSignUpConfirm, models.ChannelSMS)))

		got, err = repo.LoadLatestForUser(ctx, Alice)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Code)

		env.Clock.Current = T0.Add(10 * time.Minute)
		_, err = repo.LoadLatestForUser(ctx, Alice)
		assert.ErrorIs(t, err, repository.ErrExpiredCode)

		got, err = repo.LoadLatestForUserUnchecked(ctx, Alice)
		require.NoError(t, err)
		assert.Equal(t, "new", got.Code)
	})

	t.Run("CaseSensitivity", func(t *testing.T) {
		repo, env := setup(t)
		env.Tenants.SetUserStoreCaseSensitivity(repository.SuperTenantID, "PRIMARY", false)
		require.NoError(t, repo.Store(ctx, record(Alice, "ci", models.FlowAskPassword, "")))

		shouting := Alice
		shouting.UserName = "ALICE"
		shouting.UserStoreDomain = "primary"
		_, err := repo.LoadByCodeAndScenario(ctx, shouting, models.FlowAskPassword, "ci")
		require.NoError(t, err)

		env.Tenants.SetUserStoreCaseSensitivity(repository.SuperTenantID, "PRIMARY", true)
		_, err = repo.LoadByCodeAndScenario(ctx, shouting, models.FlowAskPassword, "ci")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)
	})

	t.Run("CaseInsensitiveNonASCII", func(t *testing.T) {
		repo, env := setup(t)
		env.Tenants.SetUserStoreCaseSensitivity(repository.SuperTenantID, "PRIMARY", false)
		olaf := Alice
		olaf.UserName = "Ölaf"
		require.NoError(t, repo.Store(ctx, record(olaf, "u1", models.FlowAskPassword, "")))

		lower := olaf
		lower.UserName = "ölaf"
		got, err := repo.LoadByCodeAndScenario(ctx, lower, models.FlowAskPassword, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.Code)

		got, err = repo.LoadLatestForUser(ctx, lower)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.Code)

		require.NoError(t, repo.InvalidateAllForUser(ctx, lower))
		_, err = repo.LoadByCode(ctx, "u1")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)
	})

	t.Run("Invalidation", func(t *testing.T) {
		repo, _ := setup(t)
		bob := Alice
		bob.UserName = "bob"
		require.NoError(t, repo.Store(ctx, record(Alice, "a1", models.FlowAskPassword, "")))
		require.NoError(t, repo.Store(ctx, record(Alice, "a2", models.FlowUsernameRecovery, "")))
		require.NoError(t, repo.Store(ctx, record(bob, "b1", models.FlowAskPassword, "")))

		require.NoError(t, repo.InvalidateByCode(ctx, "a1"))
		require.NoError(t, repo.InvalidateByCode(ctx, "a1"))
		_, err := repo.LoadByCode(ctx, "a1")
		assert.ErrorIs(t, err, repository.ErrInvalidCode)

		require.NoError(t, repo.InvalidateAllForUser(ctx, Alice))
		got, err := repo.LoadLatestForUserUnchecked(ctx, Alice)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.LoadLatestForUser(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, "b1", got.Code)
	})

	t.Run("ConfigurationErrorPropagates", func(t *testing.T) {
		repo, env := setup(t)
		require.NoError(t, env.Config.SetConfig(ctx, models.ConfigAskPasswordExpiryTime, "carbon.super", "soon"))
		require.NoError(t, repo.Store(ctx, record(Alice, "c", models.FlowAskPassword, "")))

		_, err := repo.LoadByCodeAndScenario(ctx, Alice, models.FlowAskPassword, "c")
		assert.ErrorIs(t, err, repository.ErrConfiguration)
	})
}
