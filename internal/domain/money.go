package domain

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal amount string ("-10000.50") into signed
// minor units for the given currency. Currencies unknown to the ISO table
// fall back to two fraction digits.
func ParseAmount(s, currency string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	exp := int32(2)
	if cur := money.GetCurrency(NormalizeCurrency(currency)); cur != nil {
		exp = int32(cur.Fraction)
	}
	scaled := d.Shift(exp)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more precision than %s allows", s, currency)
	}
	return scaled.IntPart(), nil
}

// FormatAmount renders minor units back into a decimal string for the wire.
func FormatAmount(v int64, currency string) string {
	exp := int32(2)
	if cur := money.GetCurrency(NormalizeCurrency(currency)); cur != nil {
		exp = int32(cur.Fraction)
	}
	return decimal.New(v, -exp).StringFixed(exp)
}
