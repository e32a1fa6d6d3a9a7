package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

const (
	orderColumns = `id, number, user_id, items, subtotal, tax, shipping, discount, total,
		coupon_code, full_name, address_line1, address_line2, city, state, postal_code,
		country, phone, payment_method, notes, payment_status, order_status, created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		ORDER BY created_at DESC, id DESC`

	updateOrderStatusSQL = `UPDATE orders SET order_status = $3
		WHERE id = $1 AND order_status = $2`

	updatePaymentStatusSQL = `UPDATE orders SET payment_status = $3
		WHERE id = $1 AND payment_status = $2`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`

	// Lock the cart rows so two concurrent checkouts for the same user
	// serialize instead of both draining the same lines.
	checkoutCartLinesSQL = `SELECT product_id, quantity, unit_price
		FROM cart_items WHERE user_id = $1 FOR UPDATE`

	// Conditional decrement: only succeeds while stock covers the quantity.
	// Untracked products always pass and keep their stock untouched.
	reserveStockSQL = `UPDATE products
		SET stock = CASE WHEN track_quantity THEN stock - $2 ELSE stock END
		WHERE id = $1 AND (NOT track_quantity OR stock >= $2)`

	// Conditional redemption: a zero usage_limit means unlimited.
	redeemCouponSQL = `UPDATE coupons SET usage_count = usage_count + 1
		WHERE code = UPPER($1) AND active = TRUE
		AND (usage_limit = 0 OR usage_count < usage_limit)`
)

var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.Store      = (*OrderRepository)(nil)
)

// OrderRepository implements order.Repository and order.Store backed by
// PostgreSQL. Checkout side effects run inside a single transaction via InTx.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// InTx begins a transaction, runs fn against it, and commits. Any error from
// fn rolls every effect back.
func (r *OrderRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &checkoutTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus conditionally moves the order's fulfillment status. A zero row
// count means the status changed underneath the caller.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	ct, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// UpdatePaymentStatus conditionally moves the order's payment status.
func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, from, to order.PaymentStatus) error {
	ct, err := r.pool.Exec(ctx, updatePaymentStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating payment status of order %q: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// checkoutTx adapts a pgx transaction to the order.Tx operations.
type checkoutTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*checkoutTx)(nil)

func (t *checkoutTx) CartLines(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := t.tx.Query(ctx, checkoutCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("locking cart lines for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

func (t *checkoutTx) ProductsByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (t *checkoutTx) ReserveStock(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("reserving %d of product %q: %w", qty, productID, err)
	}
	if ct.RowsAffected() == 0 {
		return &order.InsufficientStockError{ProductID: productID}
	}
	return nil
}

func (t *checkoutTx) RedeemCoupon(ctx context.Context, code string) error {
	ct, err := t.tx.Exec(ctx, redeemCouponSQL, code)
	if err != nil {
		return fmt.Errorf("redeeming coupon %q: %w", code, err)
	}
	if ct.RowsAffected() == 0 {
		return coupon.ErrUsageLimitReached
	}
	return nil
}

func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	addr := o.ShippingAddress
	_, err = t.tx.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.UserID, itemsJSON,
		o.Subtotal, o.Tax, o.Shipping, o.Discount, o.Total,
		o.CouponCode,
		addr.FullName, addr.Line1, addr.Line2, addr.City, addr.State,
		addr.PostalCode, addr.Country, addr.Phone,
		o.PaymentMethod, o.Notes,
		string(o.PaymentStatus), string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func (t *checkoutTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		paymentStatus string
		orderStatus   string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &itemsJSON,
		&o.Subtotal, &o.Tax, &o.Shipping, &o.Discount, &o.Total,
		&o.CouponCode,
		&o.ShippingAddress.FullName, &o.ShippingAddress.Line1, &o.ShippingAddress.Line2,
		&o.ShippingAddress.City, &o.ShippingAddress.State, &o.ShippingAddress.PostalCode,
		&o.ShippingAddress.Country, &o.ShippingAddress.Phone,
		&o.PaymentMethod, &o.Notes,
		&paymentStatus, &orderStatus, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Lines); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(orderStatus)
	return o, nil
}
