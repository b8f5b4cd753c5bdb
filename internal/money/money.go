// Package money formats monetary amounts for display.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders an amount with its currency symbol, e.g. "€0.50".
// Unknown currency codes fall back to the bare decimal string.
func Format(amount decimal.Decimal, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return amount.StringFixed(2)
	}

	return printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}

// FormatCharge is Format for charge amounts, where zero means the
// operation was settled with a free conversion.
func FormatCharge(amount decimal.Decimal, code string) string {
	if amount.IsZero() {
		return "Free"
	}

	return Format(amount, code)
}
