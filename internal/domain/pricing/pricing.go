// Package pricing computes order totals: subtotal, tax, shipping and the
// discounted grand total. All arithmetic uses decimal values; rounding to two
// decimal places happens only at serialization boundaries via Totals.Rounded.
package pricing

import "github.com/shopspring/decimal"

var (
	// TaxRate is the flat tax rate applied to the order subtotal.
	TaxRate = decimal.RequireFromString("0.10")
	// FreeShippingThreshold is the subtotal strictly above which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(100)
	// FlatShippingFee is charged when the subtotal does not exceed the threshold.
	FlatShippingFee = decimal.NewFromInt(10)

	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Line is the minimal view of an order line needed for pricing.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals holds every component of an order's price.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal returns the sum of unit price times quantity across all lines.
// The sum is commutative, so line order does not affect the result.
func Subtotal(lines []Line) decimal.Decimal {
	sum := zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Tax returns the unrounded tax on the given subtotal.
func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(TaxRate)
}

// ShippingCost returns zero when the subtotal strictly exceeds the
// free-shipping threshold, otherwise the flat fee. A subtotal exactly at the
// threshold still pays the fee.
func ShippingCost(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return zero
	}
	return FlatShippingFee
}

// GrandTotal returns subtotal + tax + shipping - discount, floored at zero so
// a discount can never produce a negative total.
func GrandTotal(subtotal, tax, shipping, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(tax).Add(shipping).Sub(discount)
	if total.IsNegative() {
		return zero
	}
	return total
}

// Compute derives all totals for the given lines and discount amount.
func Compute(lines []Line, discount decimal.Decimal) Totals {
	subtotal := Subtotal(lines)
	tax := Tax(subtotal)
	shipping := ShippingCost(subtotal)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    GrandTotal(subtotal, tax, shipping, discount),
	}
}

// Rounded returns a copy with every component rounded to two decimal places
// (round half away from zero). Intended for display and serialization only.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal: t.Subtotal.Round(2),
		Tax:      t.Tax.Round(2),
		Shipping: t.Shipping.Round(2),
		Discount: t.Discount.Round(2),
		Total:    t.Total.Round(2),
	}
}
