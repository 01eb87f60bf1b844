// Package pricing computes monetarily-correct line and order totals.
// Pure computation, no I/O; all money flows through decimal.Decimal and is
// rounded half-up to 2 decimals at the point a value becomes persistable.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	ErrInvalidPrice    = errors.New("pricing: unit price must be positive")
)

var hundred = decimal.NewFromInt(100)

// ValidateUnitPrice rejects negative prices, and zero prices unless the
// caller sanctioned a promotional zero (first purchase + promo product).
func ValidateUnitPrice(unitPrice decimal.Decimal, sanctionedZero bool) error {
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if unitPrice.IsZero() && !sanctionedZero {
		return ErrInvalidPrice
	}
	return nil
}

// ComputeLinePrice derives the final price of one line:
//
//	base     = (unitPrice + sum(extras)) * quantity
//	subtotal = base * (1 - discountPct/100)
//	final    = subtotal * (1 + taxPct/100)
//
// rounded half-up to 2 decimals. Deterministic, no side effects.
func ComputeLinePrice(unitPrice decimal.Decimal, quantity int, extras []decimal.Decimal, discountPct, taxPct decimal.Decimal) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}

	unit := unitPrice
	for _, extra := range extras {
		unit = unit.Add(extra)
	}

	base := unit.Mul(decimal.NewFromInt(int64(quantity)))
	subtotal := base.Mul(decimal.NewFromInt(1).Sub(discountPct.Div(hundred)))
	final := subtotal.Mul(decimal.NewFromInt(1).Add(taxPct.Div(hundred)))

	return final.Round(2), nil
}

// ComputeOrderTotal sums already-final line prices and applies the
// order-level discount and tax amounts. Lines carrying a promotional zero
// unit price must be excluded by the caller before summing; they stay
// persisted as items so the kitchen still sees them.
func ComputeOrderTotal(lineFinalPrices []decimal.Decimal, orderDiscount, orderTax decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range lineFinalPrices {
		total = total.Add(p)
	}
	return total.Sub(orderDiscount).Add(orderTax).Round(2)
}
