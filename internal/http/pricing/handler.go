package pricing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paperlift/paperlift/internal/pricing"
)

type Handler struct {
	svc *pricing.Service
}

func NewHandler(svc *pricing.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{operation}", h.get)
	r.Put("/{operation}", h.upsert)
}

type policyResponse struct {
	ID              uuid.UUID             `json:"id"`
	Operation       pricing.OperationType `json:"operation_type"`
	Type            pricing.Type          `json:"pricing_type"`
	BasePrice       decimal.Decimal       `json:"base_price"`
	PricePerPage    decimal.Decimal       `json:"price_per_page"`
	FreePages       int                   `json:"free_pages"`
	MinimumCharge   decimal.Decimal       `json:"minimum_charge"`
	MaxPricePerFile decimal.Decimal       `json:"max_price_per_file"`
	IsFreeOperation bool                  `json:"is_free_operation"`
	FreeLimit       int                   `json:"free_limit"`
	Description     string                `json:"description,omitempty"`
	IsActive        bool                  `json:"is_active"`
	Pricing         string                `json:"pricing,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

func toResponse(p *pricing.Policy, pageCount int) policyResponse {
	resp := policyResponse{
		ID:              p.ID,
		Operation:       p.Operation,
		Type:            p.Type,
		BasePrice:       p.BasePrice,
		PricePerPage:    p.PricePerPage,
		FreePages:       p.FreePages,
		MinimumCharge:   p.MinimumCharge,
		MaxPricePerFile: p.MaxPricePerFile,
		IsFreeOperation: p.IsFreeOperation,
		FreeLimit:       p.FreeLimit,
		Description:     p.Description,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
	}

	if pageCount > 0 {
		resp.Pricing = p.Describe(pageCount)
	}

	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	policies, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := make([]policyResponse, len(policies))
	for i, p := range policies {
		resp[i] = toResponse(p, 1)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	op := pricing.OperationType(chi.URLParam(r, "operation"))

	pageCount := 1
	if s := r.URL.Query().Get("page_count"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			pageCount = n
		}
	}

	policy, err := h.svc.Get(r.Context(), op)
	if err != nil {
		switch {
		case errors.Is(err, pricing.ErrUnknownOperation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, pricing.ErrNotFound):
			http.Error(w, "no pricing policy configured", http.StatusNotFound)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(policy, pageCount)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type upsertPolicyRequest struct {
	Type            pricing.Type    `json:"pricing_type"`
	BasePrice       decimal.Decimal `json:"base_price"`
	PricePerPage    decimal.Decimal `json:"price_per_page"`
	FreePages       int             `json:"free_pages"`
	MinimumCharge   decimal.Decimal `json:"minimum_charge"`
	MaxPricePerFile decimal.Decimal `json:"max_price_per_file"`
	IsFreeOperation bool            `json:"is_free_operation"`
	FreeLimit       int             `json:"free_limit"`
	Description     string          `json:"description"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	op := pricing.OperationType(chi.URLParam(r, "operation"))

	var req upsertPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	policy := &pricing.Policy{
		Operation:       op,
		Type:            req.Type,
		BasePrice:       req.BasePrice,
		PricePerPage:    req.PricePerPage,
		FreePages:       req.FreePages,
		MinimumCharge:   req.MinimumCharge,
		MaxPricePerFile: req.MaxPricePerFile,
		IsFreeOperation: req.IsFreeOperation,
		FreeLimit:       req.FreeLimit,
		Description:     req.Description,
		IsActive:        true,
	}
	if req.IsActive != nil {
		policy.IsActive = *req.IsActive
	}

	if err := h.svc.Upsert(r.Context(), policy); err != nil {
		switch {
		case errors.Is(err, pricing.ErrUnknownOperation),
			errors.Is(err, pricing.ErrInvalidPolicy):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(policy, 1)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
