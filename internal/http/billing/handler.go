package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/pricing"
)

type Handler struct {
	svc      *billing.Service
	currency string
}

func NewHandler(svc *billing.Service, currency string) *Handler {
	return &Handler{svc: svc, currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/charges", h.charge)
	r.Post("/credits", h.credit)
	r.Post("/refunds", h.refund)
}

// AccountRoutes mounts the per-account read queries under /accounts.
func (h *Handler) AccountRoutes(r chi.Router) {
	r.Get("/{id}/transactions", h.transactions)
	r.Get("/{id}/summary", h.summary)
}

type chargeRequest struct {
	AccountID  uuid.UUID             `json:"account_id"`
	Operation  pricing.OperationType `json:"operation_type"`
	PageCount  int                   `json:"page_count"`
	DocumentID *uuid.UUID            `json:"document_id,omitempty"`
}

func (h *Handler) charge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Charge(r.Context(), billing.ChargeParams{
		AccountID:  req.AccountID,
		Operation:  req.Operation,
		PageCount:  req.PageCount,
		DocumentID: req.DocumentID,
		IPAddress:  clientIP(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	// An unsuccessful charge is a recorded outcome, not an error; the
	// workflow branches on it.
	status := http.StatusCreated
	if !tx.IsSuccessful {
		status = http.StatusPaymentRequired
	}

	h.writeJSON(w, status, h.toResponse(tx))
}

type creditRequest struct {
	AccountID     uuid.UUID             `json:"account_id"`
	Amount        decimal.Decimal       `json:"amount"`
	PaymentMethod billing.PaymentMethod `json:"payment_method"`
}

func (h *Handler) credit(w http.ResponseWriter, r *http.Request) {
	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.CreditBalance(r.Context(), billing.CreditParams{
		AccountID:     req.AccountID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		IPAddress:     clientIP(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.toResponse(tx))
}

type refundRequest struct {
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Refund(r.Context(), billing.RefundParams{
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		IPAddress: clientIP(r),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.toResponse(tx))
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	txs, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.toResponseList(txs))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	summary, err := h.svc.Summary(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.toSummaryResponse(summary))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrNotFound):
		http.Error(w, "account not found", http.StatusNotFound)
	case errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrInvalidPageCount),
		errors.Is(err, billing.ErrInvalidPaymentMethod),
		errors.Is(err, account.ErrInvalidAmount),
		errors.Is(err, pricing.ErrUnknownOperation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
