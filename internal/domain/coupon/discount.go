package coupon

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compute calculates the discount the rule yields for the given order amount.
// Eligibility checks (validity window, minimum purchase, usage limit) are the
// validator's job; Compute only does the arithmetic.
//
// Percentage discounts are clamped to the rule's MaxDiscount cap when one is
// set. Fixed discounts are NOT clamped to the order amount: the grand total
// computation floors at zero, and that floor is the contract.
func Compute(rule *Rule, amount decimal.Decimal) (Discount, error) {
	switch rule.Type {
	case DiscountPercentage:
		raw := amount.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() && raw.GreaterThan(rule.MaxDiscount) {
			raw = rule.MaxDiscount
		}
		return Discount{Amount: floorAtZero(raw), Description: rule.Description}, nil

	case DiscountFixed:
		return Discount{Amount: floorAtZero(rule.Value), Description: rule.Description}, nil

	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.Type)
	}
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
