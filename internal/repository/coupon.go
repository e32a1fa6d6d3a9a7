package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const getCouponByCodeSQL = `SELECT code, discount_type, value,
		COALESCE(min_purchase, 0), COALESCE(max_discount, 0),
		usage_limit, usage_count, valid_from, valid_until, active, description
	FROM coupons WHERE code = UPPER($1) AND active = TRUE`

const upsertCouponSQL = `INSERT INTO coupons (code, discount_type, value, min_purchase, max_discount,
		usage_limit, valid_from, valid_until, active, description)
	VALUES (UPPER($1), $2, $3, NULLIF($4, 0::numeric), NULLIF($5, 0::numeric), $6, $7, $8, $9, $10)
	ON CONFLICT (code) DO UPDATE SET
		discount_type = EXCLUDED.discount_type,
		value = EXCLUDED.value,
		min_purchase = EXCLUDED.min_purchase,
		max_discount = EXCLUDED.max_discount,
		usage_limit = EXCLUDED.usage_limit,
		valid_from = EXCLUDED.valid_from,
		valid_until = EXCLUDED.valid_until,
		active = EXCLUDED.active,
		description = EXCLUDED.description`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon by its code (case-insensitive; codes
// are stored upper-cased). Returns coupon.ErrNotFound when no matching active
// coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// Upsert inserts or replaces a coupon rule. The stored usage count is never
// touched, so re-running an import does not reset redemptions.
func (r *CouponRepository) Upsert(ctx context.Context, rule coupon.Rule) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL,
		rule.Code, string(rule.Type), rule.Value, rule.MinPurchase, rule.MaxDiscount,
		int32(rule.UsageLimit), rule.ValidFrom, rule.ValidUntil, rule.Active, rule.Description,
	)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", rule.Code, err)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		usageLimit   int32
		usageCount   int32
		validFrom    *time.Time
		validUntil   *time.Time
	)
	err := row.Scan(
		&rule.Code, &discountType, &rule.Value,
		&rule.MinPurchase, &rule.MaxDiscount,
		&usageLimit, &usageCount, &validFrom, &validUntil,
		&rule.Active, &rule.Description,
	)
	rule.Type = coupon.DiscountType(discountType)
	rule.UsageLimit = int(usageLimit)
	rule.UsageCount = int(usageCount)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
