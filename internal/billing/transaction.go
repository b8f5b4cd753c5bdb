package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/pricing"
)

// Type represents the kind of ledger event a transaction records.
type Type string

const (
	TypeConversion Type = "conversion"
	TypeBalanceAdd Type = "balance_add"
	TypeRefund     Type = "refund"
)

// PaymentMethod identifies how a transaction was settled.
type PaymentMethod string

const (
	MethodFreeConversion PaymentMethod = "free_conversion"
	MethodBalance        PaymentMethod = "balance"
	MethodCreditCard     PaymentMethod = "credit_card"
	MethodPayPal         PaymentMethod = "paypal"
)

// Transaction is an immutable audit record of a ledger-affecting event.
// It snapshots the account state observed at the moment of the mutation;
// nothing in this package or its stores updates or deletes one.
type Transaction struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	DocumentID *uuid.UUID // billed artifact, survives artifact deletion via null-out

	Type      Type
	Operation pricing.OperationType // empty for non-conversion transactions

	Amount        decimal.Decimal
	PaymentMethod PaymentMethod

	BalanceBefore         decimal.Decimal
	BalanceAfter          decimal.Decimal
	FreeConversionsBefore int
	FreeConversionsAfter  int

	Description  string
	IsSuccessful bool
	ErrorMessage string
	IPAddress    string
	CreatedAt    time.Time
}

// Summary aggregates an account's transaction history. It is computed from
// the transaction log at read time, never cached.
type Summary struct {
	TotalSpent          decimal.Decimal
	TotalConversions    int
	TotalAdded          decimal.Decimal
	FreeConversionsUsed int
}
