package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/pricing"
)

var (
	ErrInvalidPageCount     = errors.New("invalid page count")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=billing
type Repository interface {
	// BeginLedgerTx opens the serialization boundary for a single
	// account: the returned handle holds an exclusive claim on the
	// account's ledger state until Commit or Rollback, so the
	// read-decide-write span and the audit append are one atomic unit.
	BeginLedgerTx(ctx context.Context, accountID uuid.UUID) (LedgerTx, error)

	ListTransactions(ctx context.Context, accountID uuid.UUID, limit int) ([]*Transaction, error)
	SpendSummary(ctx context.Context, accountID uuid.UUID) (*Summary, error)
}

type LedgerTx interface {
	// Account returns the account as observed under the claim.
	Account() *account.Account
	SaveAccount(ctx context.Context, acc *account.Account) error
	AppendTransaction(ctx context.Context, tx *Transaction) error
	Commit() error
	Rollback() error
}

// Service is the billing engine. It prices an operation, debits the
// account and appends the audit record as one logical unit.
type Service struct {
	repo     Repository
	pricing  *pricing.Service
	accounts *account.Service
}

func NewService(repo Repository, pricingSvc *pricing.Service, accounts *account.Service) *Service {
	return &Service{repo: repo, pricing: pricingSvc, accounts: accounts}
}

type ChargeParams struct {
	AccountID  uuid.UUID
	Operation  pricing.OperationType
	PageCount  int // zero means unknown, billed as one page
	DocumentID *uuid.UUID
	IPAddress  string
}

// Charge bills the account for one conversion. Insufficient funds is not
// an error: an unsuccessful transaction is still recorded and returned,
// and callers branch on Transaction.IsSuccessful. An error return means
// nothing was charged and nothing was recorded.
func (s *Service) Charge(ctx context.Context, params ChargeParams) (*Transaction, error) {
	if params.PageCount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageCount, params.PageCount)
	}

	policy, err := s.pricing.Resolve(ctx, params.Operation)
	if err != nil {
		return nil, fmt.Errorf("resolving policy: %w", err)
	}

	amount := policy.Cost(params.PageCount)

	ltx, err := s.repo.BeginLedgerTx(ctx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}
	defer ltx.Rollback()

	acc := ltx.Account()

	balanceBefore := acc.Balance
	freeBefore := acc.FreeConversions

	result, err := acc.ApplyCharge(amount)
	if err != nil {
		return nil, err
	}

	if result.OK {
		if err := ltx.SaveAccount(ctx, acc); err != nil {
			return nil, fmt.Errorf("saving account: %w", err)
		}
	}

	tx := &Transaction{
		AccountID:             params.AccountID,
		DocumentID:            params.DocumentID,
		Type:                  TypeConversion,
		Operation:             params.Operation,
		Amount:                result.Charged,
		PaymentMethod:         PaymentMethod(result.Method),
		BalanceBefore:         balanceBefore,
		BalanceAfter:          acc.Balance,
		FreeConversionsBefore: freeBefore,
		FreeConversionsAfter:  acc.FreeConversions,
		Description:           fmt.Sprintf("%s conversion", params.Operation.Label()),
		IsSuccessful:          result.OK,
		IPAddress:             params.IPAddress,
	}
	if !result.OK {
		tx.ErrorMessage = "insufficient funds"
	}

	// The charge is only real once its audit record is durable; an
	// append failure rolls back the ledger mutation with it.
	if err := ltx.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("committing charge: %w", err)
	}

	return tx, nil
}

type CreditParams struct {
	AccountID     uuid.UUID
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod
	IPAddress     string
}

// CreditBalance tops up the account. The payment itself is pre-authorized
// by an external gateway; this only moves the ledger.
func (s *Service) CreditBalance(ctx context.Context, params CreditParams) (*Transaction, error) {
	switch params.PaymentMethod {
	case MethodCreditCard, MethodPayPal:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, params.PaymentMethod)
	}

	desc := fmt.Sprintf("Balance top-up of %s", params.Amount)

	return s.credit(ctx, params.AccountID, params.Amount, params.PaymentMethod, TypeBalanceAdd, desc, params.IPAddress)
}

type RefundParams struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Reason    string
	IPAddress string
}

// Refund returns a previously charged amount to the balance. Used by the
// conversion workflow to reconcile charges whose artifact never
// materialized.
func (s *Service) Refund(ctx context.Context, params RefundParams) (*Transaction, error) {
	desc := params.Reason
	if desc == "" {
		desc = fmt.Sprintf("Refund of %s", params.Amount)
	}

	return s.credit(ctx, params.AccountID, params.Amount, MethodBalance, TypeRefund, desc, params.IPAddress)
}

func (s *Service) credit(
	ctx context.Context,
	accountID uuid.UUID,
	amount decimal.Decimal,
	method PaymentMethod,
	txType Type,
	description string,
	ipAddress string,
) (*Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	ltx, err := s.repo.BeginLedgerTx(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("beginning ledger tx: %w", err)
	}
	defer ltx.Rollback()

	acc := ltx.Account()

	balanceBefore := acc.Balance

	if err := acc.ApplyCredit(amount); err != nil {
		return nil, err
	}

	if err := ltx.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("saving account: %w", err)
	}

	tx := &Transaction{
		AccountID:             accountID,
		Type:                  txType,
		Amount:                amount,
		PaymentMethod:         method,
		BalanceBefore:         balanceBefore,
		BalanceAfter:          acc.Balance,
		FreeConversionsBefore: acc.FreeConversions,
		FreeConversionsAfter:  acc.FreeConversions,
		Description:           description,
		IsSuccessful:          true,
		IPAddress:             ipAddress,
	}

	if err := ltx.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	if err := ltx.Commit(); err != nil {
		return nil, fmt.Errorf("committing credit: %w", err)
	}

	return tx, nil
}

// CanAttempt reports whether the account could plausibly pay for a
// conversion. Pre-flight hint only; Charge is authoritative.
func (s *Service) CanAttempt(ctx context.Context, accountID uuid.UUID) (bool, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return false, err
	}

	return acc.CanConvert(), nil
}

// History lists the account's transactions, most recent first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, accountID, limit)
}

// Summary aggregates the account's spending from the transaction log.
func (s *Service) Summary(ctx context.Context, accountID uuid.UUID) (*Summary, error) {
	return s.repo.SpendSummary(ctx, accountID)
}
