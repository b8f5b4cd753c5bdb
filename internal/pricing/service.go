package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("pricing policy not found")
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrInvalidPolicy    = errors.New("invalid pricing policy")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=pricing
type Repository interface {
	GetPolicy(ctx context.Context, op OperationType) (*Policy, error)
	CreatePolicy(ctx context.Context, policy *Policy) error
	UpsertPolicy(ctx context.Context, policy *Policy) error
	ListPolicies(ctx context.Context) ([]*Policy, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve returns the active policy for the operation type. When none
// exists, a conservative default is created and persisted so a missing
// policy never fails a billing request.
func (s *Service) Resolve(ctx context.Context, op OperationType) (*Policy, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	policy, err := s.repo.GetPolicy(ctx, op)
	if err == nil {
		return policy, nil
	}

	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	policy = DefaultPolicy(op)
	if err := s.repo.CreatePolicy(ctx, policy); err != nil {
		return nil, fmt.Errorf("creating default policy: %w", err)
	}

	slog.Warn("no pricing policy configured, created default",
		"operation", op, "base_price", policy.BasePrice)

	return policy, nil
}

// Get returns the policy for the operation type without creating defaults.
func (s *Service) Get(ctx context.Context, op OperationType) (*Policy, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}

	return s.repo.GetPolicy(ctx, op)
}

func (s *Service) List(ctx context.Context) ([]*Policy, error) {
	return s.repo.ListPolicies(ctx)
}

// Upsert creates or replaces the policy for its operation type. There is
// exactly one active policy per operation type.
func (s *Service) Upsert(ctx context.Context, policy *Policy) error {
	if err := validatePolicy(policy); err != nil {
		return err
	}

	return s.repo.UpsertPolicy(ctx, policy)
}

func validatePolicy(p *Policy) error {
	if !p.Operation.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, p.Operation)
	}

	switch p.Type {
	case TypeFixed, TypePerPage, TypeFilePlusPages:
	default:
		return fmt.Errorf("%w: pricing type %q", ErrInvalidPolicy, p.Type)
	}

	for _, amount := range []decimal.Decimal{p.BasePrice, p.PricePerPage, p.MinimumCharge, p.MaxPricePerFile} {
		if amount.IsNegative() {
			return fmt.Errorf("%w: negative price", ErrInvalidPolicy)
		}
	}

	if p.FreePages < 0 || p.FreeLimit < 0 {
		return fmt.Errorf("%w: negative page allowance", ErrInvalidPolicy)
	}

	return nil
}
