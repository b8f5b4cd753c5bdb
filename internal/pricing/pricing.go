package pricing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationType identifies a billable conversion operation.
type OperationType string

const (
	OpDocxToPDF OperationType = "docx_to_pdf"
	OpPDFToDocx OperationType = "pdf_to_docx"
	OpXlsx      OperationType = "xlsx"
	OpPptx      OperationType = "pptx"
	OpImage     OperationType = "image"
	OpMerge     OperationType = "merge"
	OpCompress  OperationType = "compress"
	OpSplit     OperationType = "split"
	OpRotate    OperationType = "rotate"
	OpWatermark OperationType = "watermark"
	OpEncrypt   OperationType = "encrypt"
	OpExtract   OperationType = "extract"
	OpOCR       OperationType = "ocr"
)

var operationLabels = map[OperationType]string{
	OpDocxToPDF: "DOCX to PDF",
	OpPDFToDocx: "PDF to DOCX",
	OpXlsx:      "Excel to PDF",
	OpPptx:      "PowerPoint to PDF",
	OpImage:     "Image to PDF",
	OpMerge:     "Merge PDFs",
	OpCompress:  "Compress PDF",
	OpSplit:     "Split PDF",
	OpRotate:    "Rotate PDF",
	OpWatermark: "Add Watermark",
	OpEncrypt:   "Encrypt PDF",
	OpExtract:   "Extract Pages",
	OpOCR:       "OCR Recognition",
}

// Operations lists every known operation type in a stable order.
func Operations() []OperationType {
	return []OperationType{
		OpDocxToPDF, OpPDFToDocx, OpXlsx, OpPptx, OpImage, OpMerge,
		OpCompress, OpSplit, OpRotate, OpWatermark, OpEncrypt, OpExtract, OpOCR,
	}
}

// Valid reports whether the operation type is part of the closed enumeration.
func (o OperationType) Valid() bool {
	_, ok := operationLabels[o]
	return ok
}

// Label returns the human-readable name of the operation.
func (o OperationType) Label() string {
	if label, ok := operationLabels[o]; ok {
		return label
	}

	return string(o)
}

// Type selects how a policy prices an operation.
type Type string

const (
	TypeFixed         Type = "fixed"
	TypePerPage       Type = "per_page"
	TypeFilePlusPages Type = "file_plus_pages"
)

// Policy is the pricing policy for a single operation type. Policies are
// administrator-managed; the billing engine only reads them.
type Policy struct {
	ID              uuid.UUID
	Operation       OperationType
	Type            Type
	BasePrice       decimal.Decimal
	PricePerPage    decimal.Decimal
	FreePages       int
	MinimumCharge   decimal.Decimal
	MaxPricePerFile decimal.Decimal // zero means uncapped
	IsFreeOperation bool
	FreeLimit       int
	Description     string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// Cost computes the charge for converting pageCount pages under this policy.
// A pageCount of zero or less is treated as a single page, matching callers
// that cannot determine the page count up front.
func (p *Policy) Cost(pageCount int) decimal.Decimal {
	if pageCount < 1 {
		pageCount = 1
	}

	var cost decimal.Decimal

	switch p.Type {
	case TypeFixed:
		cost = p.BasePrice
	case TypePerPage:
		cost = p.PricePerPage.Mul(decimal.NewFromInt(int64(pageCount)))
	case TypeFilePlusPages:
		extra := pageCount - p.FreePages
		if extra < 0 {
			extra = 0
		}

		cost = p.BasePrice.Add(p.PricePerPage.Mul(decimal.NewFromInt(int64(extra))))
	default:
		cost = p.BasePrice
	}

	if cost.LessThan(p.MinimumCharge) {
		cost = p.MinimumCharge
	}

	if p.MaxPricePerFile.IsPositive() && cost.GreaterThan(p.MaxPricePerFile) {
		cost = p.MaxPricePerFile
	}

	return cost
}

// Describe returns a human-readable pricing summary for the given page count.
func (p *Policy) Describe(pageCount int) string {
	if pageCount < 1 {
		pageCount = 1
	}

	cost := p.Cost(pageCount)

	switch p.Type {
	case TypeFixed:
		return fmt.Sprintf("%s per file", cost)
	case TypePerPage:
		return fmt.Sprintf("%s per page (%s for %d pages)", p.PricePerPage, cost, pageCount)
	case TypeFilePlusPages:
		if pageCount <= p.FreePages {
			return fmt.Sprintf("%s (base price for up to %d pages)", cost, p.FreePages)
		}

		extra := pageCount - p.FreePages

		return fmt.Sprintf("%s (%s base + %s x %d additional pages)",
			cost, p.BasePrice, p.PricePerPage, extra)
	}

	return cost.String()
}

// DefaultPolicy is the conservative fallback used when no policy exists for
// an operation type. This is a soft default chosen for availability, not a
// statement about correct pricing; operators should replace it.
func DefaultPolicy(op OperationType) *Policy {
	return &Policy{
		Operation:     op,
		Type:          TypeFilePlusPages,
		BasePrice:     decimal.RequireFromString("0.50"),
		PricePerPage:  decimal.RequireFromString("0.10"),
		MinimumCharge: decimal.RequireFromString("0.10"),
		Description:   fmt.Sprintf("%s conversion", op.Label()),
		IsActive:      true,
	}
}
