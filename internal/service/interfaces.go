package service

import (
	"context"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
)

// RecoveryManager is the surface the recovery flow orchestrators call.
type RecoveryManager interface {
	// Issue persists a newly generated code.
	Issue(ctx context.Context, rec *models.RecoveryRecord) error
	// Verify returns the live record for user, flow and code without consuming it.
	Verify(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error)
	// Consume verifies the code and then invalidates it.
	Consume(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error)
	// Lookup returns the live record for a code issued by any flow.
	Lookup(ctx context.Context, code string) (*models.RecoveryRecord, error)
	// Latest returns the newest record of user, or nil. checkExpiry=false skips the expiry check.
	Latest(ctx context.Context, user models.User, checkExpiry bool) (*models.RecoveryRecord, error)
	// Invalidate deletes a single code.
	Invalidate(ctx context.Context, code string) error
	// InvalidateUser deletes every code of user.
	InvalidateUser(ctx context.Context, user models.User) error
}
