package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/money"
	"github.com/paperlift/paperlift/internal/pricing"
)

type transactionResponse struct {
	ID                    uuid.UUID             `json:"id"`
	AccountID             uuid.UUID             `json:"account_id"`
	DocumentID            *uuid.UUID            `json:"document_id,omitempty"`
	Type                  billing.Type          `json:"transaction_type"`
	Operation             pricing.OperationType `json:"operation_type,omitempty"`
	Amount                decimal.Decimal       `json:"amount"`
	FormattedAmount       string                `json:"formatted_amount"`
	PaymentMethod         billing.PaymentMethod `json:"payment_method"`
	BalanceBefore         decimal.Decimal       `json:"balance_before"`
	BalanceAfter          decimal.Decimal       `json:"balance_after"`
	FreeConversionsBefore int                   `json:"free_conversions_before"`
	FreeConversionsAfter  int                   `json:"free_conversions_after"`
	Description           string                `json:"description,omitempty"`
	IsSuccessful          bool                  `json:"is_successful"`
	ErrorMessage          string                `json:"error_message,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
}

func (h *Handler) toResponse(tx *billing.Transaction) transactionResponse {
	formatted := money.Format(tx.Amount, h.currency)
	if tx.Type == billing.TypeConversion {
		formatted = money.FormatCharge(tx.Amount, h.currency)
	}

	return transactionResponse{
		ID:                    tx.ID,
		AccountID:             tx.AccountID,
		DocumentID:            tx.DocumentID,
		Type:                  tx.Type,
		Operation:             tx.Operation,
		Amount:                tx.Amount,
		FormattedAmount:       formatted,
		PaymentMethod:         tx.PaymentMethod,
		BalanceBefore:         tx.BalanceBefore,
		BalanceAfter:          tx.BalanceAfter,
		FreeConversionsBefore: tx.FreeConversionsBefore,
		FreeConversionsAfter:  tx.FreeConversionsAfter,
		Description:           tx.Description,
		IsSuccessful:          tx.IsSuccessful,
		ErrorMessage:          tx.ErrorMessage,
		CreatedAt:             tx.CreatedAt,
	}
}

func (h *Handler) toResponseList(txs []*billing.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = h.toResponse(tx)
	}

	return resp
}

type summaryResponse struct {
	TotalSpent          decimal.Decimal `json:"total_spent"`
	FormattedTotalSpent string          `json:"formatted_total_spent"`
	TotalConversions    int             `json:"total_conversions"`
	TotalAdded          decimal.Decimal `json:"total_added"`
	FreeConversionsUsed int             `json:"free_conversions_used"`
}

func (h *Handler) toSummaryResponse(s *billing.Summary) summaryResponse {
	return summaryResponse{
		TotalSpent:          s.TotalSpent,
		FormattedTotalSpent: money.Format(s.TotalSpent, h.currency),
		TotalConversions:    s.TotalConversions,
		TotalAdded:          s.TotalAdded,
		FreeConversionsUsed: s.FreeConversionsUsed,
	}
}
