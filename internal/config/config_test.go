package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
)

func newTestViper(values map[string]string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "sql", cfg.Recovery.Store)
	assert.Equal(t, "file:recovery?mode=memory&cache=shared", cfg.DatabaseSettings)
	assert.Equal(t, "localhost:6379", cfg.RedisSettings.Address)
	assert.Empty(t, cfg.Recovery.Tenants)
	assert.Empty(t, cfg.Recovery.UserStores)

	assert.Equal(t, "1440", cfg.Recovery.Timeouts[models.ConfigExpiryTime])
	assert.Equal(t, "1", cfg.Recovery.Timeouts[models.ConfigSelfSignUpSMSOTPExpiryTime])
	_, ok := cfg.Recovery.Timeouts[models.ConfigRecoveryCodeExpiryTime]
	assert.False(t, ok, "recovery code timeout has a built-in fallback and no configured default")
}

func TestFromViper_Postgres(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]string{
		"DATABASE_DRIVER": "pgx",
		"DB_HOST":         "db",
		"DB_PORT":         "5432",
		"DB_USER":         "recovery",
		"DB_NAME":         "identity",
		"DB_PASS":         "secret",
		"DB_SSL_MODE":     "disable",
	}))
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=recovery dbname=identity password=secret sslmode=disable", cfg.DatabaseSettings)
}

func TestFromViper_UnsupportedDriver(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]string{"DATABASE_DRIVER": "mysql"}))
	assert.Error(t, err)
}

func TestFromViper_RecoveryStore(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]string{"RECOVERY_STORE": " Redis "}))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Recovery.Store)

	_, err = fromViper(newTestViper(map[string]string{"RECOVERY_STORE": "mongo"}))
	assert.Error(t, err)
}

func TestFromViper_ConfigStore(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"DefaultSQLUsesMemory", nil, "memory"},
		{"MemoryStoreUsesMemory", map[string]string{"RECOVERY_STORE": "memory"}, "memory"},
		{"RedisStoreUsesRedis", map[string]string{"RECOVERY_STORE": "redis"}, "redis"},
		{"ExplicitRedis", map[string]string{"RECOVERY_CONFIG_STORE": " REDIS "}, "redis"},
		{"ExplicitMemoryWithRedisStore", map[string]string{"RECOVERY_STORE": "redis", "RECOVERY_CONFIG_STORE": "memory"}, "memory"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := fromViper(newTestViper(tc.values))
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.Recovery.ConfigStore)
		})
	}

	_, err := fromViper(newTestViper(map[string]string{"RECOVERY_CONFIG_STORE": "etcd"}))
	assert.Error(t, err)
}

func TestFromViper_Recovery(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]string{
		"RECOVERY_TENANTS":          "wso2.com=1, abc.org = 2",
		"RECOVERY_USERSTORES":       "-1234/primary=insensitive,1/LDAP=Sensitive",
		"RECOVERY_CODE_EXPIRY_TIME": " 15 ",
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"wso2.com": 1, "abc.org": 2}, cfg.Recovery.Tenants)
	assert.Equal(t, []UserStoreSetting{
		{TenantID: -1234, Domain: "PRIMARY", CaseSensitive: false},
		{TenantID: 1, Domain: "LDAP", CaseSensitive: true},
	}, cfg.Recovery.UserStores)
	assert.Equal(t, "15", cfg.Recovery.Timeouts[models.ConfigRecoveryCodeExpiryTime])
}

func TestFromViper_InvalidRecoverySettings(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
	}{
		{"TenantWithoutID", map[string]string{"RECOVERY_TENANTS": "wso2.com"}},
		{"TenantBadID", map[string]string{"RECOVERY_TENANTS": "wso2.com=one"}},
		{"UserStoreWithoutMode", map[string]string{"RECOVERY_USERSTORES": "1/LDAP"}},
		{"UserStoreWithoutTenant", map[string]string{"RECOVERY_USERSTORES": "LDAP=sensitive"}},
		{"UserStoreBadMode", map[string]string{"RECOVERY_USERSTORES": "1/LDAP=maybe"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fromViper(newTestViper(tc.values))
			assert.Error(t, err)
		})
	}
}
