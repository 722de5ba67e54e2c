package sql_repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/scs-recovery-server/internal/models"
	"github.com/SimpnicServerTeam/scs-recovery-server/internal/repository"
)

const (
	recoveryTable    = "recovery_data"
	colUserName      = "user_name"
	colUserDomain    = "user_domain"
	colTenantID      = "tenant_id"
	colCode          = "code"
	colScenario      = "scenario"
	colStep          = "step"
	colTimeCreated   = "time_created"
	colRemainingSets = "remaining_sets"

	colUserNameFolded   = "user_name_folded"
	colUserDomainFolded = "user_domain_folded"
)

var recoveryColumns = []string{
	colUserName, colUserDomain, colTenantID, colCode,
	colScenario, colStep, colTimeCreated, colRemainingSets,
}

// insertColumns adds the case-folded identity used by case-insensitive lookups.
var insertColumns = []string{
	colUserName, colUserDomain, colTenantID, colCode,
	colScenario, colStep, colTimeCreated, colRemainingSets,
	colUserNameFolded, colUserDomainFolded,
}

type recoveryRow struct {
	UserName      string         `db:"user_name"`
	UserDomain    string         `db:"user_domain"`
	TenantID      int            `db:"tenant_id"`
	Code          string         `db:"code"`
	Scenario      string         `db:"scenario"`
	Step          string         `db:"step"`
	TimeCreated   time.Time      `db:"time_created"`
	RemainingSets sql.NullString `db:"remaining_sets"`
}

// SQLRecoveryRepository implements RecoveryDataRepository on a relational
// database. Every call runs in its own transaction.
type SQLRecoveryRepository struct {
	db         *sqlx.DB
	dialect    string
	tenants    repository.TenantRepository
	userStores repository.UserStoreRepository
	expiry     repository.ExpiryPolicy
	clock      *repository.CreationClock
}

var _ repository.RecoveryDataRepository = (*SQLRecoveryRepository)(nil)

// Option configures a SQLRecoveryRepository.
type Option func(*SQLRecoveryRepository)

// WithClock overrides the source of creation timestamps. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *SQLRecoveryRepository) {
		r.clock = repository.NewCreationClock(now)
	}
}

// NewSQLRecoveryRepository creates a recovery store on db. The SQL dialect is
// derived from the driver db was opened with.
func NewSQLRecoveryRepository(
	db *sqlx.DB,
	tenants repository.TenantRepository,
	userStores repository.UserStoreRepository,
	expiry repository.ExpiryPolicy,
	opts ...Option,
) (*SQLRecoveryRepository, error) {
	d, err := DialectOf(db.DriverName())
	if err != nil {
		return nil, err
	}
	r := &SQLRecoveryRepository{
		db:         db,
		dialect:    d,
		tenants:    tenants,
		userStores: userStores,
		expiry:     expiry,
		clock:      repository.NewCreationClock(time.Now),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// DialectOf maps a database/sql driver name to its SQL dialect.
func DialectOf(driverName string) (string, error) {
	switch driverName {
	case dialect.SQLite, "sqlite":
		return dialect.SQLite, nil
	case dialect.Postgres, "pgx":
		return dialect.Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driverName)
	}
}

func (r *SQLRecoveryRepository) Store(ctx context.Context, rec *models.RecoveryRecord) error {
	if err := repository.ValidateRecord(rec); err != nil {
		return err
	}

	tenantID, err := r.tenants.TenantID(ctx, rec.User.TenantDomain)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant %s: %w", rec.User.TenantDomain, err)
	}

	createdAt := r.clock.Next()
	domain := repository.NormalizeUserStoreDomain(rec.User.UserStoreDomain)
	query, args := entsql.Dialect(r.dialect).
		Insert(recoveryTable).
		Columns(insertColumns...).
		Values(
			rec.User.UserName,
			domain,
			tenantID,
			rec.Code,
			string(rec.Flow.Scenario()),
			string(rec.Flow.Step()),
			createdAt,
			sql.NullString{String: rec.RemainingData, Valid: rec.RemainingData != ""},
			repository.FoldCase(rec.User.UserName),
			repository.FoldCase(domain),
		).
		Query()

	err = r.withTx(ctx, "store", false, func(tx *sqlx.Tx) error {
		if _, err := execStmt(ctx, tx, query, args); err != nil {
			return r.storageError("store", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec.CreatedAt = createdAt
	log.Debug().
		Str("user", rec.User.String()).
		Str("flow", rec.Flow.String()).
		Str("codePrefix", repository.MaskCode(rec.Code)).
		Msg("Stored recovery code")
	return nil
}

func (r *SQLRecoveryRepository) LoadByCodeAndScenario(ctx context.Context, user models.User, flow models.RecoveryFlow, code string) (*models.RecoveryRecord, error) {
	p, err := r.userPredicate(ctx, user)
	if err != nil {
		return nil, err
	}
	query, args := r.selectLatest(entsql.And(
		p,
		entsql.EQ(colCode, code),
		entsql.EQ(colScenario, string(flow.Scenario())),
		entsql.EQ(colStep, string(flow.Step())),
	))

	row, err := r.loadRow(ctx, "load by code and scenario", query, args)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, repository.NewInvalidCodeError(code)
	}

	rec := &models.RecoveryRecord{
		User:          user,
		Code:          code,
		Flow:          flow,
		CreatedAt:     row.TimeCreated,
		RemainingData: remainingData(row),
	}
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *SQLRecoveryRepository) LoadByCode(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	query, args := r.selectLatest(entsql.EQ(colCode, code))

	row, err := r.loadRow(ctx, "load by code", query, args)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, repository.NewInvalidCodeError(code)
	}

	tenantDomain, err := r.tenants.TenantDomain(ctx, row.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant id %d: %w", row.TenantID, err)
	}
	user := models.User{
		UserName:        row.UserName,
		UserStoreDomain: row.UserDomain,
		TenantDomain:    tenantDomain,
	}
	rec, err := r.hydrate(row, user)
	if err != nil {
		return nil, err
	}
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *SQLRecoveryRepository) LoadLatestForUser(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	rec, err := r.loadLatestForUser(ctx, user)
	if err != nil || rec == nil {
		return nil, err
	}
	if err := repository.CheckExpiry(ctx, r.expiry, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *SQLRecoveryRepository) LoadLatestForUserUnchecked(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	return r.loadLatestForUser(ctx, user)
}

func (r *SQLRecoveryRepository) loadLatestForUser(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	p, err := r.userPredicate(ctx, user)
	if err != nil {
		return nil, err
	}
	query, args := r.selectLatest(p)

	row, err := r.loadRow(ctx, "load latest for user", query, args)
	if err != nil || row == nil {
		return nil, err
	}
	return r.hydrate(row, user)
}

func (r *SQLRecoveryRepository) InvalidateByCode(ctx context.Context, code string) error {
	query, args := entsql.Dialect(r.dialect).
		Delete(recoveryTable).
		Where(entsql.EQ(colCode, code)).
		Query()

	return r.withTx(ctx, "invalidate code", false, func(tx *sqlx.Tx) error {
		res, err := execStmt(ctx, tx, query, args)
		if err != nil {
			return r.storageError("invalidate code", err)
		}
		n, _ := res.RowsAffected()
		log.Debug().Str("codePrefix", repository.MaskCode(code)).Int64("deleted", n).Msg("Invalidated recovery code")
		return nil
	})
}

func (r *SQLRecoveryRepository) InvalidateAllForUser(ctx context.Context, user models.User) error {
	p, err := r.userPredicate(ctx, user)
	if err != nil {
		return err
	}
	query, args := entsql.Dialect(r.dialect).
		Delete(recoveryTable).
		Where(p).
		Query()

	return r.withTx(ctx, "invalidate user codes", false, func(tx *sqlx.Tx) error {
		res, err := execStmt(ctx, tx, query, args)
		if err != nil {
			return r.storageError("invalidate user codes", err)
		}
		n, _ := res.RowsAffected()
		log.Debug().Str("user", user.String()).Int64("deleted", n).Msg("Invalidated recovery codes of user")
		return nil
	})
}

// userPredicate matches the rows of user. User name and user store domain are
// compared ignoring case when the user store is case-insensitive.
func (r *SQLRecoveryRepository) userPredicate(ctx context.Context, user models.User) (*entsql.Predicate, error) {
	tenantID, caseSensitive, err := repository.ResolveUser(ctx, r.tenants, r.userStores, user)
	if err != nil {
		return nil, err
	}
	domain := repository.NormalizeUserStoreDomain(user.UserStoreDomain)

	log.Debug().
		Str("userStore", domain).
		Int("tenantId", tenantID).
		Bool("caseSensitive", caseSensitive).
		Msg("Selected recovery data lookup form")

	if caseSensitive {
		return entsql.And(
			entsql.EQ(colUserName, user.UserName),
			entsql.EQ(colUserDomain, domain),
			entsql.EQ(colTenantID, tenantID),
		), nil
	}
	return entsql.And(
		entsql.EQ(colUserNameFolded, repository.FoldCase(user.UserName)),
		entsql.EQ(colUserDomainFolded, repository.FoldCase(domain)),
		entsql.EQ(colTenantID, tenantID),
	), nil
}

func (r *SQLRecoveryRepository) selectLatest(p *entsql.Predicate) (string, []any) {
	return entsql.Dialect(r.dialect).
		Select(recoveryColumns...).
		From(entsql.Table(recoveryTable)).
		Where(p).
		OrderBy(entsql.Desc(colTimeCreated)).
		Limit(1).
		Query()
}

// loadRow runs a single row query in a read-only transaction. A missing row
// yields (nil, nil).
func (r *SQLRecoveryRepository) loadRow(ctx context.Context, op, query string, args []any) (*recoveryRow, error) {
	var row *recoveryRow
	err := r.withTx(ctx, op, true, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return r.storageError(op, err)
		}
		defer stmt.Close()

		var dest recoveryRow
		err = stmt.GetContext(ctx, &dest, args...)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return r.storageError(op, err)
		}
		row = &dest
		return nil
	})
	return row, err
}

func (r *SQLRecoveryRepository) hydrate(row *recoveryRow, user models.User) (*models.RecoveryRecord, error) {
	flow, err := models.ParseRecoveryFlow(row.Scenario, row.Step)
	if err != nil {
		return nil, r.storageError("decode recovery flow", err)
	}
	return &models.RecoveryRecord{
		User:          user,
		Code:          row.Code,
		Flow:          flow,
		CreatedAt:     row.TimeCreated,
		RemainingData: remainingData(row),
	}, nil
}

// withTx runs fn in a transaction, committing when fn succeeds and rolling
// back otherwise.
func (r *SQLRecoveryRepository) withTx(ctx context.Context, op string, readOnly bool, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return r.storageError(op, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error().Err(rbErr).Str("op", op).Msg("Failed to roll back recovery data transaction")
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = r.storageError(op, cErr)
		}
	}()
	return fn(tx)
}

func execStmt(ctx context.Context, tx *sqlx.Tx, query string, args []any) (sql.Result, error) {
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	return stmt.ExecContext(ctx, args...)
}

func (r *SQLRecoveryRepository) storageError(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Recovery data storage failure")
	return &repository.StorageError{Op: op, Err: err}
}

func remainingData(row *recoveryRow) string {
	if !row.RemainingSets.Valid || strings.TrimSpace(row.RemainingSets.String) == "" {
		return ""
	}
	return row.RemainingSets.String
}
