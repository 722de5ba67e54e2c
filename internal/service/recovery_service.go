package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
)

// RecoveryService fronts the recovery data repository for the HTTP surface.
type RecoveryService struct {
	repo repository.RecoveryDataRepository
}

var _ RecoveryManager = (*RecoveryService)(nil)

// NewRecoveryService creates a RecoveryService
func NewRecoveryService(repo repository.RecoveryDataRepository) *RecoveryService {
	return &RecoveryService{repo: repo}
}

func (s *RecoveryService) Issue(ctx context.Context, rec *models.RecoveryRecord) error {
	if err := s.repo.Store(ctx, rec); err != nil {
		return fmt.Errorf("failed to issue recovery code: %w", err)
	}
	log.Info().Str("user", rec.User.String()).Str("flow", rec.Flow.String()).Msg("Recovery code issued")
	return nil
}

func (s *RecoveryService) Verify(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	rec, err := s.repo.LoadByCodeAndScenario(ctx, user, flow, code)
	if err != nil {
		logRejection(err, user.String(), flow.String())
		return nil, err
	}
	return rec, nil
}

// Consume invalidates the code after a successful verification. Two concurrent
// calls may both verify before either invalidates; invalidation is the commit
// point.
func (s *RecoveryService) Consume(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	rec, err := s.Verify(ctx, user, flow, code)
	if err != nil {
		return nil, err
	}
	if err := s.repo.InvalidateByCode(ctx, code); err != nil {
		return nil, fmt.Errorf("failed to consume recovery code: %w", err)
	}
	log.Info().Str("user", user.String()).Str("flow", flow.String()).Msg("Recovery code consumed")
	return rec, nil
}

func (s *RecoveryService) Lookup(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	rec, err := s.repo.LoadByCode(ctx, code)
	if err != nil {
		logRejection(err, "", "")
		return nil, err
	}
	return rec, nil
}

func (s *RecoveryService) Latest(ctx context.Context, user models.User, checkExpiry bool) (*models.RecoveryRecord, error) {
	if !checkExpiry {
		return s.repo.LoadLatestForUserUnchecked(ctx, user)
	}
	rec, err := s.repo.LoadLatestForUser(ctx, user)
	if err != nil {
		logRejection(err, user.String(), "")
		return nil, err
	}
	return rec, nil
}

func (s *RecoveryService) Invalidate(ctx context.Context, code string) error {
	return s.repo.InvalidateByCode(ctx, code)
}

func (s *RecoveryService) InvalidateUser(ctx context.Context, user models.User) error {
	if err := s.repo.InvalidateAllForUser(ctx, user); err != nil {
		return err
	}
	log.Info().Str("user", user.String()).Msg("All recovery codes of user invalidated")
	return nil
}

func logRejection(err error, user, flow string) {
	switch {
	case errors.Is(err, repository.ErrExpiredCode):
		log.Info().Str("user", user).Str("flow", flow).Msg("Expired recovery code presented")
	case errors.Is(err, repository.ErrInvalidCode):
		log.Info().Str("user", user).Str("flow", flow).Msg("Unknown recovery code presented")
	default:
		log.Error().Err(err).Str("user", user).Str("flow", flow).Msg("Recovery code lookup failed")
	}
}
