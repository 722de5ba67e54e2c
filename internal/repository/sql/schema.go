package sql_repo

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
)

var schemaStatements = map[string][]string{
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS recovery_data (
			user_name      VARCHAR(255) NOT NULL,
			user_domain    VARCHAR(127) NOT NULL,
			tenant_id      INTEGER      NOT NULL DEFAULT -1,
			code           VARCHAR(255) NOT NULL PRIMARY KEY,
			scenario       VARCHAR(64)  NOT NULL,
			step           VARCHAR(64)  NOT NULL,
			time_created   TIMESTAMP    NOT NULL,
			remaining_sets VARCHAR(2500) DEFAULT NULL,
			user_name_folded   VARCHAR(255) NOT NULL,
			user_domain_folded VARCHAR(127) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_data_user
			ON recovery_data (tenant_id, user_domain, user_name)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_data_user_folded
			ON recovery_data (tenant_id, user_domain_folded, user_name_folded)`,
	},
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS recovery_data (
			user_name      VARCHAR(255) NOT NULL,
			user_domain    VARCHAR(127) NOT NULL,
			tenant_id      INTEGER      NOT NULL DEFAULT -1,
			code           VARCHAR(255) NOT NULL PRIMARY KEY,
			scenario       VARCHAR(64)  NOT NULL,
			step           VARCHAR(64)  NOT NULL,
			time_created   TIMESTAMPTZ  NOT NULL,
			remaining_sets VARCHAR(2500) DEFAULT NULL,
			user_name_folded   VARCHAR(255) NOT NULL,
			user_domain_folded VARCHAR(127) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_data_user
			ON recovery_data (tenant_id, user_domain, user_name)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_data_user_folded
			ON recovery_data (tenant_id, user_domain_folded, user_name_folded)`,
	},
}

// Migrate creates the recovery_data table and its indexes when missing.
func (r *SQLRecoveryRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements[r.dialect] {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed creating schema resources: %w", err)
		}
	}
	return nil
}
