package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
)

// maxTimeoutMinutes is the largest timeout representable as a time.Duration.
// Negative configured timeouts are replaced by it.
const maxTimeoutMinutes = int64(math.MaxInt64 / int64(time.Minute))

// expiryRule maps a (flow, discriminator) predicate to the config key holding its timeout.
type expiryRule struct {
	name  string
	match func(flow models.RecoveryFlow, remainingData string) bool
	key   string
}

func isSelfSignUpConfirm(f models.RecoveryFlow) bool {
	return f.Scenario() == models.ScenarioSelfSignUp && f.Step() == models.StepConfirmSignUp
}

func isPasswordRecovery(f models.RecoveryFlow) bool {
	return f.Scenario() == models.ScenarioNotificationBasedPasswordRecovery
}

// expiryRules is evaluated top to bottom; the first match wins.
var expiryRules = []expiryRule{
	{
		name: "self sign-up confirmation via email",
		match: func(f models.RecoveryFlow, d string) bool {
			return isSelfSignUpConfirm(f) && models.IsEmailChannel(d)
		},
		key: models.ConfigSelfSignUpVerificationExpiryTime,
	},
	{
		name: "self sign-up confirmation via sms",
		match: func(f models.RecoveryFlow, d string) bool {
			return isSelfSignUpConfirm(f) && models.IsSMSChannel(d)
		},
		key: models.ConfigSelfSignUpSMSOTPExpiryTime,
	},
	{
		// Unset or unknown channel falls back to the verification link timeout.
		name:  "self sign-up confirmation, no channel",
		match: func(f models.RecoveryFlow, _ string) bool { return isSelfSignUpConfirm(f) },
		key:   models.ConfigSelfSignUpVerificationExpiryTime,
	},
	{
		name:  "ask password",
		match: func(f models.RecoveryFlow, _ string) bool { return f.Scenario() == models.ScenarioAskPassword },
		key:   models.ConfigAskPasswordExpiryTime,
	},
	{
		name:  "username recovery",
		match: func(f models.RecoveryFlow, _ string) bool { return f.Scenario() == models.ScenarioUsernameRecovery },
		key:   models.ConfigRecoveryCodeExpiryTime,
	},
	{
		name: "password recovery resend",
		match: func(f models.RecoveryFlow, _ string) bool {
			return isPasswordRecovery(f) && f.Step() == models.StepResendConfirmationCode
		},
		key: models.ConfigResendCodeExpiryTime,
	},
	{
		name: "password recovery code",
		match: func(f models.RecoveryFlow, _ string) bool {
			return isPasswordRecovery(f) && f.Step() == models.StepSendRecoveryInformation
		},
		key: models.ConfigRecoveryCodeExpiryTime,
	},
	{
		name: "password recovery sms otp",
		match: func(f models.RecoveryFlow, d string) bool {
			return isPasswordRecovery(f) && models.IsSMSChannel(d)
		},
		key: models.ConfigPasswordRecoverySMSOTPExpiryTime,
	},
	{
		name:  "default",
		match: func(models.RecoveryFlow, string) bool { return true },
		key:   models.ConfigExpiryTime,
	},
}

// fallbackMinutes holds the keys whose missing or malformed values are tolerated.
var fallbackMinutes = map[string]int64{
	models.ConfigRecoveryCodeExpiryTime: models.DefaultRecoveryCodeExpiryMinutes,
	models.ConfigResendCodeExpiryTime:   models.DefaultResendCodeExpiryMinutes,
}

// ExpiryResolver decides whether recovery codes are past their configured deadline.
type ExpiryResolver struct {
	config repository.TenantConfigRepository
	now    func() time.Time
}

var _ repository.ExpiryPolicy = (*ExpiryResolver)(nil)

// ExpiryOption configures an ExpiryResolver.
type ExpiryOption func(*ExpiryResolver)

// WithClock overrides the time source. Defaults to time.Now.
func WithClock(now func() time.Time) ExpiryOption {
	return func(r *ExpiryResolver) {
		r.now = now
	}
}

// NewExpiryResolver creates an ExpiryResolver reading timeouts from config.
func NewExpiryResolver(config repository.TenantConfigRepository, opts ...ExpiryOption) *ExpiryResolver {
	r := &ExpiryResolver{config: config, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveKey returns the config key holding the timeout for flow and discriminator.
func ResolveKey(flow models.RecoveryFlow, remainingData string) string {
	for _, rule := range expiryRules {
		if rule.match(flow, remainingData) {
			log.Debug().
				Str("rule", rule.name).
				Str("flow", flow.String()).
				Str("channel", remainingData).
				Msg("Resolved recovery code expiry rule")
			return rule.key
		}
	}
	// unreachable, the last rule always matches
	return models.ConfigExpiryTime
}

// TimeoutMinutes returns the configured timeout for flow in tenantDomain.
// A negative result means the code never expires.
func (r *ExpiryResolver) TimeoutMinutes(ctx context.Context, tenantDomain string, flow models.RecoveryFlow, remainingData string) (int64, error) {
	key := ResolveKey(flow, remainingData)

	raw, err := r.config.GetConfig(ctx, key, tenantDomain)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s for tenant %s: %w", key, tenantDomain, err)
	}

	fallback, hasFallback := fallbackMinutes[key]
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if hasFallback {
			return fallback, nil
		}
		return 0, fmt.Errorf("%w: %s is not set for tenant %s", repository.ErrConfiguration, key, tenantDomain)
	}

	minutes, err := models.ParseExpiryMinutes(raw)
	if err != nil {
		if hasFallback {
			log.Debug().Str("key", key).Str("value", raw).Int64("default", fallback).
				Msg("Malformed recovery code expiry time, using the default")
			return fallback, nil
		}
		return 0, fmt.Errorf("%w: %s=%q for tenant %s is not a number", repository.ErrConfiguration, key, raw, tenantDomain)
	}
	return minutes, nil
}

// Deadline returns the instant after which a code created at createdAt is expired.
func (r *ExpiryResolver) Deadline(ctx context.Context, tenantDomain string, flow models.RecoveryFlow, createdAt time.Time, remainingData string) (time.Time, error) {
	minutes, err := r.TimeoutMinutes(ctx, tenantDomain, flow, remainingData)
	if err != nil {
		return time.Time{}, err
	}
	if minutes < 0 || minutes > maxTimeoutMinutes {
		minutes = maxTimeoutMinutes
	}
	return createdAt.Add(time.Duration(minutes) * time.Minute), nil
}

// IsExpired reports whether now is strictly past the code's deadline.
func (r *ExpiryResolver) IsExpired(ctx context.Context, tenantDomain string, flow models.RecoveryFlow, createdAt time.Time, remainingData string) (bool, error) {
	deadline, err := r.Deadline(ctx, tenantDomain, flow, createdAt, remainingData)
	if err != nil {
		return false, err
	}
	return r.now().After(deadline), nil
}
