package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/config"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/handlers"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/logger"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/memory"
	redis_repo "github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/redis"
	sql_repo "github.com/SimpnicServerTeam/scs-recovery-server/internal/repository/sql"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/router"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/server"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.AppEnv)

	tenantRepo := memory.NewMemoryTenantRepository()
	for domain, id := range cfg.Recovery.Tenants {
		tenantRepo.RegisterTenant(domain, id)
	}
	for _, us := range cfg.Recovery.UserStores {
		tenantRepo.SetUserStoreCaseSensitivity(us.TenantID, us.Domain, us.CaseSensitive)
	}

	var redisClient *redis.Client
	if cfg.Recovery.Store == "redis" || cfg.Recovery.ConfigStore == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisSettings.Address,
			Password: cfg.RedisSettings.Password,
			DB:       cfg.RedisSettings.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Str("address", cfg.RedisSettings.Address).Msg("Redis unreachable, lookups will fail until it recovers")
		}
	}

	defaults := memory.NewMemoryTenantConfigRepository(cfg.Recovery.Timeouts)
	var tenantConfig repository.TenantConfigAdmin = defaults
	if cfg.Recovery.ConfigStore == "redis" {
		tenantConfig = redis_repo.NewRedisTenantConfigRepository(redisClient, defaults)
	}
	log.Info().Str("configStore", cfg.Recovery.ConfigStore).Msg("Tenant config provider ready")

	expiry := service.NewExpiryResolver(tenantConfig)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	var recoveryRepo repository.RecoveryDataRepository
	switch cfg.Recovery.Store {
	case "redis":
		recoveryRepo = redis_repo.NewRedisRecoveryRepository(redisClient, tenantRepo, tenantRepo, expiry, nil)
	case "memory":
		log.Warn().Msg("Recovery codes are kept in memory and will not survive a restart")
		memRepo := memory.NewMemoryRecoveryRepository(tenantRepo, tenantRepo, expiry, nil)
		go sweepExpired(sweepCtx, memRepo, 5*time.Minute)
		recoveryRepo = memRepo
	default:
		db, err := sqlx.Open(cfg.DatabaseDriver, cfg.DatabaseSettings)
		if err != nil {
			log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("Failed opening database connection")
		}
		defer db.Close()
		if cfg.DatabaseDriver == "sqlite3" {
			// A shared in-memory database disappears with its last connection.
			db.SetMaxOpenConns(1)
		}

		sqlRepo, err := sql_repo.NewSQLRecoveryRepository(db, tenantRepo, tenantRepo, expiry)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed creating recovery repository")
		}
		// Run the schema migration.
		if err := sqlRepo.Migrate(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Failed creating schema resources")
		}
		recoveryRepo = sqlRepo
	}
	log.Info().Str("store", cfg.Recovery.Store).Msg("Recovery data store ready")

	app := server.New()

	router.SetupRecoveryRoutes(app, handlers.NewRecoveryHandler(
		service.NewRecoveryService(recoveryRepo),
	), cfg.JWTSecret)
	router.SetupTenantConfigRoutes(app, handlers.NewTenantConfigHandler(tenantConfig), cfg.JWTSecret)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Server starting")
		if err := app.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped gracefully.")
}

// sweepExpired periodically drops expired codes from the in-memory store.
func sweepExpired(ctx context.Context, repo *memory.MemoryRecoveryRepository, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.CleanupExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Failed to sweep expired recovery codes")
				continue
			}
			log.Debug().Int("removed", removed).Msg("Swept expired recovery codes")
		}
	}
}
