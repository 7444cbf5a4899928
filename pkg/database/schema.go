package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements create the residents and concerns tables. Each statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS residents (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	avatar TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS concerns (
	id UUID PRIMARY KEY,
	text TEXT NOT NULL,
	resident_id UUID NOT NULL REFERENCES residents(id),
	submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	verification JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_concerns_resident_id ON concerns (resident_id)`,
	`CREATE INDEX IF NOT EXISTS idx_concerns_verification_status ON concerns ((verification->>'status'))`,
}

// EnsureSchema applies the table definitions inside one transaction.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
