// Package money holds integer minor-unit helpers shared by the settlement
// engine and the chat messages. Amounts never pass through float64.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultGSTRate is the 7% goods and services tax.
var DefaultGSTRate = decimal.RequireFromString("0.07")

// String renders cents as a plain two-decimal amount, e.g. 350 -> "3.50".
func String(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Format renders cents with a dollar sign, e.g. 350 -> "$3.50".
func Format(cents int64) string {
	return "$" + String(cents)
}

// CeilMul returns ceil(amount * rate) in whole cents.
func CeilMul(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Ceil().IntPart()
}

// CeilDiv returns ceil(num / den) for non-negative num and positive den.
func CeilDiv(num, den int64) int64 {
	if den <= 0 {
		return 0
	}
	return (num + den - 1) / den
}

// ParseRate parses a non-negative decimal rate such as "0.07".
func ParseRate(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultGSTRate, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", raw, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("rate %q must be >= 0", raw)
	}
	return rate, nil
}
