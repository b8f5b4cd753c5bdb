package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paperlift/paperlift/internal/pricing"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectPolicyColumns = `
	id, operation_type, pricing_type, base_price, price_per_page, free_pages,
	max_price_per_file, minimum_charge, is_free_operation, free_limit,
	description, is_active, created_at, updated_at
`

func scanPolicy(s scanner) (*pricing.Policy, error) {
	var p pricing.Policy

	var opStr, typeStr string

	if err := s.Scan(
		&p.ID, &opStr, &typeStr, &p.BasePrice, &p.PricePerPage, &p.FreePages,
		&p.MaxPricePerFile, &p.MinimumCharge, &p.IsFreeOperation, &p.FreeLimit,
		&p.Description, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Operation = pricing.OperationType(opStr)
	p.Type = pricing.Type(typeStr)

	return &p, nil
}

func (s *Store) GetPolicy(ctx context.Context, op pricing.OperationType) (*pricing.Policy, error) {
	query := `SELECT ` + selectPolicyColumns + `
		FROM pricing_policies
		WHERE operation_type = $1 AND is_active`

	policy, err := scanPolicy(s.db.QueryRowContext(ctx, query, op))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, pricing.ErrNotFound
		}

		return nil, fmt.Errorf("getting policy: %w", err)
	}

	return policy, nil
}

func (s *Store) CreatePolicy(ctx context.Context, policy *pricing.Policy) error {
	query := `
		INSERT INTO pricing_policies
			(operation_type, pricing_type, base_price, price_per_page, free_pages,
			 max_price_per_file, minimum_charge, is_free_operation, free_limit,
			 description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (operation_type) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		policy.Operation,
		policy.Type,
		policy.BasePrice,
		policy.PricePerPage,
		policy.FreePages,
		policy.MaxPricePerFile,
		policy.MinimumCharge,
		policy.IsFreeOperation,
		policy.FreeLimit,
		policy.Description,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	if err != nil {
		// A concurrent Resolve may have created the row first; return
		// the winner so both callers observe the same policy.
		if err == sql.ErrNoRows {
			existing, getErr := s.GetPolicy(ctx, policy.Operation)
			if getErr != nil {
				return fmt.Errorf("creating policy: %w", getErr)
			}

			*policy = *existing

			return nil
		}

		return fmt.Errorf("creating policy: %w", err)
	}

	return nil
}

func (s *Store) UpsertPolicy(ctx context.Context, policy *pricing.Policy) error {
	query := `
		INSERT INTO pricing_policies
			(operation_type, pricing_type, base_price, price_per_page, free_pages,
			 max_price_per_file, minimum_charge, is_free_operation, free_limit,
			 description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		ON CONFLICT (operation_type) DO UPDATE SET
			pricing_type = EXCLUDED.pricing_type,
			base_price = EXCLUDED.base_price,
			price_per_page = EXCLUDED.price_per_page,
			free_pages = EXCLUDED.free_pages,
			max_price_per_file = EXCLUDED.max_price_per_file,
			minimum_charge = EXCLUDED.minimum_charge,
			is_free_operation = EXCLUDED.is_free_operation,
			free_limit = EXCLUDED.free_limit,
			description = EXCLUDED.description,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		policy.Operation,
		policy.Type,
		policy.BasePrice,
		policy.PricePerPage,
		policy.FreePages,
		policy.MaxPricePerFile,
		policy.MinimumCharge,
		policy.IsFreeOperation,
		policy.FreeLimit,
		policy.Description,
		policy.IsActive,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting policy: %w", err)
	}

	return nil
}

func (s *Store) ListPolicies(ctx context.Context) ([]*pricing.Policy, error) {
	query := `SELECT ` + selectPolicyColumns + `
		FROM pricing_policies
		ORDER BY operation_type ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing policies: %w", err)
	}
	defer rows.Close()

	var policies []*pricing.Policy

	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning policy: %w", err)
		}

		policies = append(policies, policy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating policy rows: %w", err)
	}

	return policies, nil
}
