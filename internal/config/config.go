package config

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
)

type RedisSettings struct {
	Address  string
	Password string
	DB       int
}

// UserStoreSetting declares how a user store of a tenant compares user names.
type UserStoreSetting struct {
	TenantID      int
	Domain        string
	CaseSensitive bool
}

type RecoveryConfig struct {
	// sql, redis or memory
	Store string
	// Where tenant timeout overrides live: redis or memory. Defaults to redis
	// only when Store is redis.
	ConfigStore string
	// Tenant domain -> tenant id. The super tenant is always present.
	Tenants    map[string]int
	UserStores []UserStoreSetting
	// Default timeouts in minutes, keyed by the tenant config key they seed.
	Timeouts map[string]string
}

type Config struct {
	// Server port
	Port      string
	AppEnv    string
	LogLevel  string
	JWTSecret string
	// sqlite3, postgres or pgx
	DatabaseDriver string
	// host=<host> port=<port> user=<user> dbname=<database> password=<pass> sslmode=<enable/disable>
	DatabaseSettings string
	RedisSettings    RedisSettings
	Recovery         RecoveryConfig
}

// timeoutEnv maps environment keys to the tenant config key they provide a default for.
var timeoutEnv = map[string]string{
	"RECOVERY_EXPIRY_TIME":              models.ConfigExpiryTime,
	"RECOVERY_ASK_PASSWORD_EXPIRY_TIME": models.ConfigAskPasswordExpiryTime,
	"RECOVERY_SIGNUP_CODE_EXPIRY_TIME":  models.ConfigSelfSignUpVerificationExpiryTime,
	"RECOVERY_SIGNUP_SMS_EXPIRY_TIME":   models.ConfigSelfSignUpSMSOTPExpiryTime,
	"RECOVERY_PW_SMS_EXPIRY_TIME":       models.ConfigPasswordRecoverySMSOTPExpiryTime,
	"RECOVERY_CODE_EXPIRY_TIME":         models.ConfigRecoveryCodeExpiryTime,
	"RECOVERY_RESEND_CODE_EXPIRY_TIME":  models.ConfigResendCodeExpiryTime,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RECOVERY_STORE", "sql")
	v.SetDefault("DATABASE_DRIVER", "sqlite3")
	v.SetDefault("SQLITE_DSN", "file:recovery?mode=memory&cache=shared")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")

	v.SetDefault("RECOVERY_EXPIRY_TIME", "1440")
	v.SetDefault("RECOVERY_ASK_PASSWORD_EXPIRY_TIME", "1440")
	v.SetDefault("RECOVERY_SIGNUP_CODE_EXPIRY_TIME", "1440")
	v.SetDefault("RECOVERY_SIGNUP_SMS_EXPIRY_TIME", "1")
	v.SetDefault("RECOVERY_PW_SMS_EXPIRY_TIME", "1")
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	// Load configuration
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		log.Println("Warning: JWT_SECRET is empty, the recovery API will reject every request.")
	}

	// Database Configuration
	databaseDriver := v.GetString("DATABASE_DRIVER")
	var databaseSettings string
	switch databaseDriver {
	case "sqlite3":
		databaseSettings = v.GetString("SQLITE_DSN")
	case "postgres", "pgx":
		databaseSettings = fmt.Sprintf(
			"host=%s port=%d user=%s dbname=%s password=%s sslmode=%s",
			v.GetString("DB_HOST"),
			v.GetInt("DB_PORT"),
			v.GetString("DB_USER"),
			v.GetString("DB_NAME"),
			v.GetString("DB_PASS"),
			v.GetString("DB_SSL_MODE"),
		)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", databaseDriver)
	}

	store := strings.ToLower(strings.TrimSpace(v.GetString("RECOVERY_STORE")))
	switch store {
	case "sql", "redis", "memory":
	default:
		return nil, fmt.Errorf("unsupported RECOVERY_STORE %q", store)
	}

	configStore := strings.ToLower(strings.TrimSpace(v.GetString("RECOVERY_CONFIG_STORE")))
	switch configStore {
	case "":
		configStore = "memory"
		if store == "redis" {
			configStore = "redis"
		}
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("unsupported RECOVERY_CONFIG_STORE %q", configStore)
	}

	tenants, err := parseTenants(v.GetString("RECOVERY_TENANTS"))
	if err != nil {
		return nil, err
	}
	userStores, err := parseUserStores(v.GetString("RECOVERY_USERSTORES"))
	if err != nil {
		return nil, err
	}

	timeouts := make(map[string]string, len(timeoutEnv))
	for env, key := range timeoutEnv {
		if value := strings.TrimSpace(v.GetString(env)); value != "" {
			timeouts[key] = value
		}
	}

	return &Config{
		Port:             v.GetString("APP_PORT"),
		AppEnv:           v.GetString("APP_ENV"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		JWTSecret:        jwtSecret,
		DatabaseDriver:   databaseDriver,
		DatabaseSettings: databaseSettings,
		RedisSettings: RedisSettings{
			Address:  v.GetString("REDIS_ADDRESS"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Recovery: RecoveryConfig{
			Store:       store,
			ConfigStore: configStore,
			Tenants:     tenants,
			UserStores:  userStores,
			Timeouts:    timeouts,
		},
	}, nil
}

// parseTenants reads "wso2.com=1,abc.org=2".
func parseTenants(raw string) (map[string]int, error) {
	tenants := map[string]int{}
	for _, pair := range splitList(raw) {
		domain, id, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid RECOVERY_TENANTS entry %q, expected domain=id", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id in RECOVERY_TENANTS entry %q: %w", pair, err)
		}
		tenants[strings.TrimSpace(domain)] = n
	}
	return tenants, nil
}

// parseUserStores reads "-1234/PRIMARY=insensitive,1/LDAP=sensitive".
func parseUserStores(raw string) ([]UserStoreSetting, error) {
	var stores []UserStoreSetting
	for _, entry := range splitList(raw) {
		target, mode, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid RECOVERY_USERSTORES entry %q, expected tenantId/DOMAIN=sensitive|insensitive", entry)
		}
		tenant, domain, ok := strings.Cut(target, "/")
		if !ok {
			return nil, fmt.Errorf("invalid RECOVERY_USERSTORES entry %q, expected tenantId/DOMAIN", entry)
		}
		tenantID, err := strconv.Atoi(strings.TrimSpace(tenant))
		if err != nil {
			return nil, fmt.Errorf("invalid tenant id in RECOVERY_USERSTORES entry %q: %w", entry, err)
		}

		var sensitive bool
		switch strings.ToLower(strings.TrimSpace(mode)) {
		case "sensitive":
			sensitive = true
		case "insensitive":
			sensitive = false
		default:
			return nil, fmt.Errorf("invalid case mode %q in RECOVERY_USERSTORES entry %q", mode, entry)
		}
		stores = append(stores, UserStoreSetting{
			TenantID:      tenantID,
			Domain:        strings.ToUpper(strings.TrimSpace(domain)),
			CaseSensitive: sensitive,
		})
	}
	return stores, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
