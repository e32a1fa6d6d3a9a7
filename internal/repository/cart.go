package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	ensureCartSQL = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	getCartLinesSQL = `SELECT product_id, quantity, unit_price
		FROM cart_items WHERE user_id = $1`

	upsertCartLineSQL = `INSERT INTO cart_items (user_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price`

	removeCartLineSQL = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. One carts
// row per user enforces unique ownership; lines live in cart_items with a
// (user_id, product_id) unique constraint, so a cart holds at most one line
// per product.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart, creating the cart row on first access.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, ensureCartSQL, userID); err != nil {
		return nil, fmt.Errorf("ensuring cart for user %q: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, getCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cart lines for user %q: %w", userID, err)
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("loading cart lines for user %q: %w", userID, err)
	}

	return &cart.Cart{UserID: userID, Lines: lines}, nil
}

// UpsertLine inserts the line or replaces the existing line for the product.
func (r *CartRepository) UpsertLine(ctx context.Context, userID string, line cart.Line) error {
	if _, err := r.pool.Exec(ctx, ensureCartSQL, userID); err != nil {
		return fmt.Errorf("ensuring cart for user %q: %w", userID, err)
	}
	_, err := r.pool.Exec(ctx, upsertCartLineSQL,
		userID, line.ProductID, line.Quantity, line.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("upserting cart line %q for user %q: %w", line.ProductID, userID, err)
	}
	return nil
}

// RemoveLine deletes the line for the given product, if present.
func (r *CartRepository) RemoveLine(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, removeCartLineSQL, userID, productID)
	if err != nil {
		return fmt.Errorf("removing cart line %q for user %q: %w", productID, userID, err)
	}
	return nil
}

// Clear deletes all of the user's cart lines, keeping the cart row.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, clearCartSQL, userID)
	if err != nil {
		return fmt.Errorf("clearing cart for user %q: %w", userID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice)
	return l, err
}
