package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied on startup. Statements are idempotent so repeated
// application against an existing database is safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email            TEXT NOT NULL UNIQUE,
		balance          NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		free_conversions INT NOT NULL DEFAULT 0 CHECK (free_conversions >= 0),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS pricing_policies (
		id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		operation_type     TEXT NOT NULL UNIQUE,
		pricing_type       TEXT NOT NULL,
		base_price         NUMERIC(5,2) NOT NULL DEFAULT 0.10,
		price_per_page     NUMERIC(5,2) NOT NULL DEFAULT 0.00,
		free_pages         INT NOT NULL DEFAULT 0,
		max_price_per_file NUMERIC(5,2) NOT NULL DEFAULT 0.00,
		minimum_charge     NUMERIC(5,2) NOT NULL DEFAULT 0.10,
		is_free_operation  BOOLEAN NOT NULL DEFAULT FALSE,
		free_limit         INT NOT NULL DEFAULT 0,
		description        TEXT NOT NULL DEFAULT '',
		is_active          BOOLEAN NOT NULL DEFAULT TRUE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS documents (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id UUID NOT NULL REFERENCES accounts (id),
		file_name  TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	// Transactions are append-only. There is deliberately no code path
	// that updates or deletes rows here.
	`CREATE TABLE IF NOT EXISTS transactions (
		id                         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_id                 UUID NOT NULL REFERENCES accounts (id),
		document_id                UUID REFERENCES documents (id) ON DELETE SET NULL,
		transaction_type           TEXT NOT NULL,
		operation_type             TEXT,
		amount                     NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (amount >= 0),
		payment_method             TEXT NOT NULL,
		balance_before             NUMERIC(10,2) NOT NULL DEFAULT 0,
		balance_after              NUMERIC(10,2) NOT NULL DEFAULT 0,
		free_conversions_before    INT NOT NULL DEFAULT 0,
		free_conversions_after     INT NOT NULL DEFAULT 0,
		description                TEXT NOT NULL DEFAULT '',
		is_successful              BOOLEAN NOT NULL DEFAULT TRUE,
		error_message              TEXT NOT NULL DEFAULT '',
		ip_address                 TEXT NOT NULL DEFAULT '',
		created_at                 TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transactions_account_created
		ON transactions (account_id, created_at DESC)`,
}

// Migrate brings the database schema up to date.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	return nil
}
