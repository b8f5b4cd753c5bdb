package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/pricing"
)

const defaultHistoryLimit = 100

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type ledgerTx struct {
	tx  *sql.Tx
	acc *account.Account
}

// BeginLedgerTx opens a database transaction and locks the account row.
// The lock is scoped to the single account: concurrent charges against
// different accounts do not contend.
func (s *Store) BeginLedgerTx(ctx context.Context, accountID uuid.UUID) (billing.LedgerTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}

	query := `
		SELECT id, email, balance, free_conversions, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	var acc account.Account

	err = dbTx.QueryRowContext(ctx, query, accountID).Scan(
		&acc.ID, &acc.Email, &acc.Balance, &acc.FreeConversions,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		dbTx.Rollback()

		if err == sql.ErrNoRows {
			return nil, account.ErrNotFound
		}

		return nil, fmt.Errorf("locking account: %w", err)
	}

	return &ledgerTx{tx: dbTx, acc: &acc}, nil
}

func (ltx *ledgerTx) Account() *account.Account { return ltx.acc }
func (ltx *ledgerTx) Commit() error             { return ltx.tx.Commit() }
func (ltx *ledgerTx) Rollback() error           { return ltx.tx.Rollback() }

func (ltx *ledgerTx) SaveAccount(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, free_conversions = $2, updated_at = NOW()
		WHERE id = $3
	`

	if _, err := ltx.tx.ExecContext(ctx, query, acc.Balance, acc.FreeConversions, acc.ID); err != nil {
		return fmt.Errorf("updating account: %w", err)
	}

	return nil
}

func (ltx *ledgerTx) AppendTransaction(ctx context.Context, tx *billing.Transaction) error {
	query := `
		INSERT INTO transactions
			(account_id, document_id, transaction_type, operation_type, amount,
			 payment_method, balance_before, balance_after,
			 free_conversions_before, free_conversions_after,
			 description, is_successful, error_message, ip_address, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
		RETURNING id, created_at
	`

	err := ltx.tx.QueryRowContext(ctx, query,
		tx.AccountID,
		tx.DocumentID,
		tx.Type,
		string(tx.Operation),
		tx.Amount,
		tx.PaymentMethod,
		tx.BalanceBefore,
		tx.BalanceAfter,
		tx.FreeConversionsBefore,
		tx.FreeConversionsAfter,
		tx.Description,
		tx.IsSuccessful,
		tx.ErrorMessage,
		tx.IPAddress,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending transaction: %w", err)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectTransactionColumns = `
	id, account_id, document_id, transaction_type, operation_type, amount,
	payment_method, balance_before, balance_after,
	free_conversions_before, free_conversions_after,
	description, is_successful, error_message, ip_address, created_at
`

func scanTransaction(s scanner) (*billing.Transaction, error) {
	var tx billing.Transaction

	var typeStr, methodStr string

	var opStr sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.AccountID, &tx.DocumentID, &typeStr, &opStr, &tx.Amount,
		&methodStr, &tx.BalanceBefore, &tx.BalanceAfter,
		&tx.FreeConversionsBefore, &tx.FreeConversionsAfter,
		&tx.Description, &tx.IsSuccessful, &tx.ErrorMessage, &tx.IPAddress,
		&tx.CreatedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = billing.Type(typeStr)
	tx.PaymentMethod = billing.PaymentMethod(methodStr)

	if opStr.Valid {
		tx.Operation = pricing.OperationType(opStr.String)
	}

	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*billing.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*billing.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

// SpendSummary aggregates over the transaction log at query time so the
// result always reflects the current log.
func (s *Store) SpendSummary(ctx context.Context, accountID uuid.UUID) (*billing.Summary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'conversion' AND is_successful), 0),
			COUNT(*) FILTER (WHERE transaction_type = 'conversion' AND is_successful),
			COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'balance_add' AND is_successful), 0),
			COUNT(*) FILTER (WHERE transaction_type = 'conversion' AND is_successful AND payment_method = 'free_conversion')
		FROM transactions
		WHERE account_id = $1
	`

	var summary billing.Summary

	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&summary.TotalSpent,
		&summary.TotalConversions,
		&summary.TotalAdded,
		&summary.FreeConversionsUsed,
	)
	if err != nil {
		return nil, fmt.Errorf("summarizing spend: %w", err)
	}

	return &summary, nil
}
