package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the symbol shown in front of formatted amounts.
const Currency = "R$"

// MaxAmount is the largest amount an expense may carry, the upper bound of
// a NUMERIC(12,2) column.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Cents rounds d to two decimal places, the precision amounts are stored at.
func Cents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Valid reports whether d, once rounded to cents, is a storable expense
// amount: strictly positive and no larger than MaxAmount.
func Valid(d decimal.Decimal) bool {
	d = Cents(d)
	return d.IsPositive() && d.LessThanOrEqual(MaxAmount)
}

// ParseBRL converts a Brazilian-formatted amount ("1.234,56") into a decimal.
// Thousands separators are dropped and the decimal comma becomes a point.
// Malformed input yields zero rather than an error; callers validate positivity.
func ParseBRL(v string) decimal.Decimal {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero
	}
	v = strings.ReplaceAll(v, ".", "")
	v = strings.ReplaceAll(v, ",", ".")
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders an amount as "R$ 1234.56".
func Format(d decimal.Decimal) string {
	return Currency + " " + d.StringFixed(2)
}

// FormatInput renders an amount back into the form's locale ("1234,56").
func FormatInput(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
