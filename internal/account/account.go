package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("account not found")
	ErrDuplicate     = errors.New("account already exists")
	ErrInvalidAmount = errors.New("invalid amount")
)

// ChargeMethod identifies how a charge was settled.
type ChargeMethod string

const (
	MethodFreeConversion ChargeMethod = "free_conversion"
	MethodBalance        ChargeMethod = "balance"
)

// Account holds a user's monetary balance and free-conversion allowance.
// Both fields change only through ApplyCharge/ApplyCredit and are never
// negative. Accounts are soft-retained: there is no delete operation while
// transactions reference them.
type Account struct {
	ID              uuid.UUID
	Email           string
	Balance         decimal.Decimal
	FreeConversions int
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// CanConvert reports whether the account could plausibly pay for a
// conversion. This is a pre-flight hint; the authoritative answer is the
// success flag of the charge itself.
func (a *Account) CanConvert() bool {
	return a.FreeConversions > 0 || a.Balance.IsPositive()
}

// ChargeResult describes the outcome of a charge decision.
type ChargeResult struct {
	Method ChargeMethod
	// Charged is the amount actually taken from the balance. Zero for
	// free conversions; for a failed charge it carries the price that
	// would have been charged, for audit visibility.
	Charged decimal.Decimal
	OK      bool
}

// ApplyCharge debits the account for a conversion priced at amount.
// Decision order: a free conversion is consumed first; otherwise the
// balance is debited when sufficient; otherwise nothing changes and the
// result is unsuccessful. Callers must hold the account's serialization
// guard across the surrounding read-decide-write span.
func (a *Account) ApplyCharge(amount decimal.Decimal) (ChargeResult, error) {
	if amount.IsNegative() {
		return ChargeResult{}, ErrInvalidAmount
	}

	if a.FreeConversions > 0 {
		a.FreeConversions--

		return ChargeResult{
			Method:  MethodFreeConversion,
			Charged: decimal.Zero,
			OK:      true,
		}, nil
	}

	if a.Balance.GreaterThanOrEqual(amount) {
		a.Balance = a.Balance.Sub(amount)

		return ChargeResult{
			Method:  MethodBalance,
			Charged: amount,
			OK:      true,
		}, nil
	}

	return ChargeResult{
		Method:  MethodBalance,
		Charged: amount,
		OK:      false,
	}, nil
}

// ApplyCredit adds amount to the balance. Used for top-ups and refunds.
func (a *Account) ApplyCredit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)

	return nil
}
