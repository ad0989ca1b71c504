package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Milliunits is an amount in thousandths of the budget's currency unit.
// 1000 milliunits = one unit; 12.34 units = 12340. All stored amounts and
// all arithmetic are exact milliunits.
type Milliunits int64

// Epsilon is half a cent in milliunits. It is a comparison tolerance only
// (overspend gate, split-sum check, forecast budget check), never part of
// arithmetic.
const Epsilon Milliunits = 5

// ParseAmount converts a decimal string such as "12.34" or "-7.005" to
// milliunits, rounding half away from zero on the fourth decimal place.
func ParseAmount(s string) (Milliunits, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, ErrInvalidAmount)
	}
	return FromDecimal(d), nil
}

// FromDecimal converts a decimal unit amount to milliunits.
func FromDecimal(d decimal.Decimal) Milliunits {
	return Milliunits(d.Shift(3).Round(0).IntPart())
}

// Decimal returns the exact unit value.
func (m Milliunits) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -3)
}

// String formats the amount as a fixed two-decimal unit string, for logs
// and reports.
func (m Milliunits) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Milliunits) Abs() Milliunits {
	if m < 0 {
		return -m
	}
	return m
}

// EqualsApprox reports whether a and b differ by at most Epsilon.
func EqualsApprox(a, b Milliunits) bool {
	return (a - b).Abs() <= Epsilon
}
