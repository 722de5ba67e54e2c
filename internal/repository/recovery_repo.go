package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
)

// Recovery code errors. Callers match them with errors.Is.
var (
	// ErrInvalidCode is returned when no stored code matches the lookup.
	ErrInvalidCode = errors.New("invalid recovery code")
	// ErrExpiredCode is returned when the code exists but its deadline has passed.
	ErrExpiredCode = errors.New("expired recovery code")
	// ErrStorage is matched by every StorageError.
	ErrStorage = errors.New("recovery data storage failure")
)

// CodeError reports a rejected code together with the code itself.
type CodeError struct {
	Code string
	Err  error
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Code)
}

func (e *CodeError) Unwrap() error { return e.Err }

// NewInvalidCodeError builds the error returned for an unknown code.
func NewInvalidCodeError(code string) error {
	return &CodeError{Code: code, Err: ErrInvalidCode}
}

// NewExpiredCodeError builds the error returned for a code past its deadline.
func NewExpiredCodeError(code string) error {
	return &CodeError{Code: code, Err: ErrExpiredCode}
}

// StorageError wraps a failure of the backing medium.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("recovery data storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// RecoveryDataRepository defines the lifecycle of issued recovery codes.
type RecoveryDataRepository interface {
	// Store inserts a new record. CreatedAt is assigned by the repository and
	// written back into rec.
	Store(ctx context.Context, rec *models.RecoveryRecord) error

	// LoadByCodeAndScenario returns the record matching user, flow and code.
	// It returns ErrInvalidCode when nothing matches and ErrExpiredCode when
	// the match is past its deadline.
	LoadByCodeAndScenario(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error)

	// LoadByCode returns the record for code, reading the flow from storage.
	LoadByCode(ctx context.Context, code string) (*models.RecoveryRecord, error)

	// LoadLatestForUser returns the newest record of user, or nil when the
	// user has none. An expired newest record yields ErrExpiredCode.
	LoadLatestForUser(ctx context.Context, user models.User) (*models.RecoveryRecord, error)

	// LoadLatestForUserUnchecked is LoadLatestForUser without the expiry check.
	LoadLatestForUserUnchecked(ctx context.Context, user models.User) (*models.RecoveryRecord, error)

	// InvalidateByCode deletes the record for code. Deleting nothing is not an error.
	InvalidateByCode(ctx context.Context, code string) error

	// InvalidateAllForUser deletes every record of user.
	InvalidateAllForUser(ctx context.Context, user models.User) error
}

// ExpiryPolicy decides whether a stored code is past its deadline.
type ExpiryPolicy interface {
	IsExpired(ctx context.Context, tenantDomain string, flow models.RecoveryFlow, createdAt time.Time, remainingData string) (bool, error)
}
