package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator validates a coupon code against a prospective order amount and
// returns the computed discount. Validation never consumes a usage slot.
type Validator interface {
	Validate(ctx context.Context, code string, amount decimal.Decimal) (*Discount, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository and applying them via Compute.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate runs the eligibility checks in a fixed order, each short-circuiting
// with its own error: existence/active, validity window, minimum purchase,
// usage limit. On success it returns the computed (unrounded) discount.
func (v *RepoValidator) Validate(ctx context.Context, code string, amount decimal.Decimal) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()

	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return nil, ErrExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return nil, ErrExpired
	}

	if rule.MinPurchase.IsPositive() && amount.LessThan(rule.MinPurchase) {
		return nil, &MinPurchaseError{Minimum: rule.MinPurchase}
	}

	if rule.UsageLimit > 0 && rule.UsageCount >= rule.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	d, err := Compute(rule, amount)
	if err != nil {
		return nil, err
	}

	return &d, nil
}
