package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/paperlift/paperlift/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPolicy_Cost(t *testing.T) {
	type testCase struct {
		name      string
		policy    pricing.Policy
		pageCount int
		want      string
	}

	tests := []testCase{
		{
			name: "FixedIgnoresPages",
			policy: pricing.Policy{
				Type:      pricing.TypeFixed,
				BasePrice: dec("0.50"),
			},
			pageCount: 42,
			want:      "0.50",
		},
		{
			name: "PerPage",
			policy: pricing.Policy{
				Type:         pricing.TypePerPage,
				PricePerPage: dec("0.10"),
			},
			pageCount: 4,
			want:      "0.40",
		},
		{
			name: "FilePlusPagesWithinFreePages",
			policy: pricing.Policy{
				Type:         pricing.TypeFilePlusPages,
				BasePrice:    dec("0.50"),
				PricePerPage: dec("0.10"),
				FreePages:    2,
			},
			pageCount: 2,
			want:      "0.50",
		},
		{
			name: "FilePlusPagesOnePastFreePages",
			policy: pricing.Policy{
				Type:         pricing.TypeFilePlusPages,
				BasePrice:    dec("0.50"),
				PricePerPage: dec("0.10"),
				FreePages:    2,
			},
			pageCount: 3,
			want:      "0.60",
		},
		{
			name: "FilePlusPagesFiveOfWhichTwoFree",
			policy: pricing.Policy{
				Type:          pricing.TypeFilePlusPages,
				BasePrice:     dec("0.50"),
				PricePerPage:  dec("0.10"),
				FreePages:     2,
				MinimumCharge: dec("0.10"),
			},
			pageCount: 5,
			want:      "0.80",
		},
		{
			name: "MinimumChargeFloor",
			policy: pricing.Policy{
				Type:          pricing.TypePerPage,
				PricePerPage:  dec("0.01"),
				MinimumCharge: dec("0.10"),
			},
			pageCount: 2,
			want:      "0.10",
		},
		{
			name: "MaxPricePerFileCap",
			policy: pricing.Policy{
				Type:            pricing.TypePerPage,
				PricePerPage:    dec("0.10"),
				MaxPricePerFile: dec("2.00"),
			},
			pageCount: 100,
			want:      "2.00",
		},
		{
			name: "ZeroCapMeansUncapped",
			policy: pricing.Policy{
				Type:         pricing.TypePerPage,
				PricePerPage: dec("0.10"),
			},
			pageCount: 100,
			want:      "10.00",
		},
		{
			name: "UnknownPageCountDefaultsToOne",
			policy: pricing.Policy{
				Type:         pricing.TypePerPage,
				PricePerPage: dec("0.10"),
			},
			pageCount: 0,
			want:      "0.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Cost(tt.pageCount)
			assert.True(t, got.Equal(dec(tt.want)), "cost = %s, want %s", got, tt.want)
		})
	}
}

func TestPolicy_CostDefaultBoundaries(t *testing.T) {
	// For a file_plus_pages policy, cost at freePages is max(base, minimum)
	// and cost at freePages+1 adds exactly one per-page increment.
	policy := pricing.Policy{
		Type:          pricing.TypeFilePlusPages,
		BasePrice:     dec("0.50"),
		PricePerPage:  dec("0.10"),
		FreePages:     3,
		MinimumCharge: dec("0.10"),
	}

	assert.True(t, policy.Cost(3).Equal(dec("0.50")))
	assert.True(t, policy.Cost(4).Equal(dec("0.60")))
}

func TestDefaultPolicy(t *testing.T) {
	policy := pricing.DefaultPolicy(pricing.OpOCR)

	assert.Equal(t, pricing.OpOCR, policy.Operation)
	assert.Equal(t, pricing.TypeFilePlusPages, policy.Type)
	assert.True(t, policy.IsActive)
	assert.True(t, policy.Cost(1).Equal(dec("0.50")))
}

func TestOperationType_Valid(t *testing.T) {
	for _, op := range pricing.Operations() {
		assert.True(t, op.Valid(), "operation %s", op)
	}

	assert.False(t, pricing.OperationType("csv_to_pdf").Valid())
}
