package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/account"
	"github.com/paperlift/paperlift/internal/billing"
	"github.com/paperlift/paperlift/internal/money"
)

type Handler struct {
	svc      *account.Service
	billing  *billing.Service
	currency string
}

func NewHandler(svc *account.Service, billingSvc *billing.Service, currency string) *Handler {
	return &Handler{svc: svc, billing: billingSvc, currency: currency}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Get("/{id}/eligibility", h.eligibility)
}

type createAccountRequest struct {
	Email string `json:"email"`
}

type accountResponse struct {
	ID               uuid.UUID       `json:"id"`
	Email            string          `json:"email"`
	Balance          decimal.Decimal `json:"balance"`
	FormattedBalance string          `json:"formatted_balance"`
	FreeConversions  int             `json:"free_conversions"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (h *Handler) toResponse(acc *account.Account) accountResponse {
	return accountResponse{
		ID:               acc.ID,
		Email:            acc.Email,
		Balance:          acc.Balance,
		FormattedBalance: money.Format(acc.Balance, h.currency),
		FreeConversions:  acc.FreeConversions,
		CreatedAt:        acc.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	acc, err := h.svc.Create(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			http.Error(w, "account already exists", http.StatusConflict)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(h.toResponse(acc)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	acc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.toResponse(acc)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type eligibilityResponse struct {
	CanConvert bool `json:"can_convert"`
}

func (h *Handler) eligibility(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ok, err := h.billing.CanAttempt(r.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(eligibilityResponse{CanConvert: ok}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
