package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/config"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/logger"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/service"
	"github.com/rs/zerolog/log"
)

// Prints a bearer token for the recovery API, signed with JWT_SECRET.
func main() {
	subject := flag.String("subject", "", "calling flow, stored as the sub claim")
	ttl := flag.Duration("ttl", service.DefaultOperatorTokenTTL, "token lifetime")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	// stdout carries the token only.
	logger.InitWithWriter(cfg.LogLevel, cfg.AppEnv, os.Stderr)

	tokens := service.NewOperatorTokenService(cfg.JWTSecret)
	token, expiry, err := tokens.GenerateToken(*subject, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to generate operator token")
	}
	log.Info().Str("subject", *subject).Time("expiresAt", expiry.UTC().Truncate(time.Second)).Msg("Operator token issued")
	fmt.Println(token)
}
