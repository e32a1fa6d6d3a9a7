package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the order amount.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when a coupon code does not exist or is inactive.
	ErrNotFound = errors.New("coupon not found or inactive")
	// ErrExpired is returned when a coupon is outside its valid time window.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// MinPurchaseError indicates the order amount is below the coupon's minimum.
type MinPurchaseError struct {
	Minimum decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase of %s required", e.Minimum.StringFixed(2))
}

// Rule defines a coupon's discount behaviour and eligibility constraints.
// Codes are stored upper-cased and matched case-insensitively. A zero
// MinPurchase, MaxDiscount or UsageLimit means the constraint is not set;
// MaxDiscount applies to percentage coupons only.
type Rule struct {
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	MaxDiscount decimal.Decimal
	UsageLimit  int
	UsageCount  int
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	Active      bool
	Description string
}

// Discount holds the computed discount amount and a human-readable description.
// Amount is unrounded; callers round once at the serialization edge.
type Discount struct {
	Amount      decimal.Decimal
	Description string
}

// Repository provides lookup of coupon rules. FindByCode must return
// ErrNotFound for unknown or inactive codes. Redemption (usage increment) is
// not part of this interface: it belongs to the checkout transaction so a
// usage slot is never consumed by a checkout that fails.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
