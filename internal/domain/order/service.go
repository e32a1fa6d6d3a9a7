package order

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ValidationError indicates a missing or malformed checkout input field.
// It is raised before any side effect.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// ProductNotFoundError indicates a cart references a product that no longer
// exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError indicates the conditional stock decrement failed: the
// product's stock changed between cart-add and checkout, or a concurrent
// checkout won the remaining units. The whole checkout aborts; callers may
// retry since no effect was committed.
type InsufficientStockError struct {
	ProductID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

// Tx is the set of operations available inside a single checkout transaction.
// Every method's effect commits or rolls back together.
type Tx interface {
	// CartLines loads and locks the user's cart lines.
	CartLines(ctx context.Context, userID string) ([]cart.Line, error)
	// ProductsByIDs returns catalog rows for the given product IDs.
	ProductsByIDs(ctx context.Context, ids []string) ([]product.Product, error)
	// ReserveStock decrements a tracked product's stock by qty only if the
	// current stock covers it, returning *InsufficientStockError otherwise.
	ReserveStock(ctx context.Context, productID string, qty int) error
	// RedeemCoupon consumes one usage slot only if the usage limit still has
	// room, returning coupon.ErrUsageLimitReached otherwise.
	RedeemCoupon(ctx context.Context, code string) error
	// CreateOrder persists the assembled order.
	CreateOrder(ctx context.Context, o *Order) error
	// ClearCart empties the user's cart lines.
	ClearCart(ctx context.Context, userID string) error
}

// Store runs checkout work inside one transaction: either every effect
// (stock decrement, coupon redemption, order row, cart clear) commits, or
// none of them do.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// CheckoutRequest holds the input for assembling an order.
type CheckoutRequest struct {
	UserID          string
	ShippingAddress Address
	PaymentMethod   string
	Notes           string
	CouponCode      string
}

// Service assembles orders from carts and manages order status transitions.
type Service struct {
	store   Store
	orders  Repository
	coupons coupon.Validator

	now       func() time.Time
	newNumber func(t time.Time) string
}

// NewService creates an order Service with the required dependencies.
func NewService(store Store, orders Repository, coupons coupon.Validator) *Service {
	return &Service{
		store:     store,
		orders:    orders,
		coupons:   coupons,
		now:       time.Now,
		newNumber: newOrderNumber,
	}
}

// Checkout converts the caller's cart into a priced, stock-reserving order.
// All side effects run in one transaction; any failing step aborts the whole
// checkout with no partial order, no stock decrement, no coupon consumption
// and an intact cart.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var placed *Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		orderLines, err := s.snapshotLines(ctx, tx, lines)
		if err != nil {
			return err
		}

		priceLines := make([]pricing.Line, len(orderLines))
		for i, l := range orderLines {
			priceLines[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
		}
		subtotal := pricing.Subtotal(priceLines)

		// A failing coupon aborts the whole checkout; an order without the
		// requested discount is never substituted silently.
		discount := decimal.Zero
		if req.CouponCode != "" {
			d, err := s.coupons.Validate(ctx, req.CouponCode, subtotal)
			if err != nil {
				return err
			}
			discount = d.Amount
		}

		totals := pricing.Compute(priceLines, discount)
		now := s.now()

		o := &Order{
			ID:              uuid.New().String(),
			Number:          s.newNumber(now),
			UserID:          req.UserID,
			Lines:           orderLines,
			Subtotal:        totals.Subtotal,
			Tax:             totals.Tax,
			Shipping:        totals.Shipping,
			Discount:        totals.Discount,
			Total:           totals.Total,
			CouponCode:      strings.ToUpper(req.CouponCode),
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			Notes:           req.Notes,
			PaymentStatus:   PaymentPending,
			Status:          StatusPending,
			CreatedAt:       now,
		}

		for _, l := range orderLines {
			if err := tx.ReserveStock(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		if req.CouponCode != "" {
			if err := tx.RedeemCoupon(ctx, req.CouponCode); err != nil {
				return err
			}
		}

		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := tx.ClearCart(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}

// snapshotLines denormalizes cart lines into order lines, capturing the
// product name and image alongside the cart's captured unit price.
func (s *Service) snapshotLines(ctx context.Context, tx Tx, lines []cart.Line) ([]Line, error) {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	products, err := tx.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	out := make([]Line, len(lines))
	for i, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}
		out[i] = Line{
			ProductID: l.ProductID,
			Name:      p.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Image:     p.Image,
		}
	}
	return out, nil
}

// GetByID returns a single order.
func (s *Service) GetByID(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// SetStatus transitions an order's fulfillment status, enforcing the
// forward-only transition graph. The underlying update is conditional on the
// status the transition was decided against, so concurrent updates surface as
// ErrStatusConflict instead of silently clobbering each other.
func (s *Service) SetStatus(ctx context.Context, id string, to Status) (*Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(to) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, to)
	}

	if err := s.orders.UpdateStatus(ctx, id, o.Status, to); err != nil {
		return nil, err
	}
	o.Status = to
	return o, nil
}

// SetPaymentStatus transitions an order's payment status.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, to PaymentStatus) (*Order, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.PaymentStatus.CanTransitionTo(to) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.PaymentStatus, to)
	}

	if err := s.orders.UpdatePaymentStatus(ctx, id, o.PaymentStatus, to); err != nil {
		return nil, err
	}
	o.PaymentStatus = to
	return o, nil
}

func validateRequest(req CheckoutRequest) error {
	addr := req.ShippingAddress
	required := []struct {
		field string
		value string
	}{
		{"full name", addr.FullName},
		{"address line 1", addr.Line1},
		{"city", addr.City},
		{"state", addr.State},
		{"postal code", addr.PostalCode},
		{"country", addr.Country},
		{"phone", addr.Phone},
		{"payment method", req.PaymentMethod},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field}
		}
	}
	return nil
}

const numberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newOrderNumber builds a human-readable order number from the checkout time
// and a short random alphanumeric suffix. Collisions are treated as
// negligible; the column's unique constraint is the backstop.
func newOrderNumber(t time.Time) string {
	base := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))

	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	for i, b := range suffix {
		suffix[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}

	return fmt.Sprintf("ORD-%s-%s", base, suffix)
}
