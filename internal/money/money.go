// Package money converts between decimal amounts and the ledger's integer
// minor-unit representation. All arithmetic stays in fixed-point decimals;
// amounts never pass through a binary float, so repeated imports of the same
// source value always land on the same integer.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ToMinorUnits converts a decimal amount to minor units (cents), rounding
// half away from zero: 12.345 -> 1235, -12.345 -> -1235.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// ToMinorUnitsNeg is ToMinorUnits with the sign flipped, for outgoing legs.
func ToMinorUnitsNeg(d decimal.Decimal) int64 {
	return -ToMinorUnits(d)
}

// FromMinorUnits converts minor units back to a decimal amount.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.New(n, -2)
}

// Parse reads a decimal amount from a numeric string. The expense API ships
// every monetary value as a string.
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}
