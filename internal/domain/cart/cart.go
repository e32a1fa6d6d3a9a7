// Package cart holds a user's mutable shopping cart: at most one line per
// product, each line capturing quantity and the unit price at the time of the
// most recent add. Cart pricing is "live": repeat adds refresh the captured
// price to the catalog's current price, and the total is always recomputed
// from the lines at read time, never stored.
package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Line is one product entry in a cart.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Cart is a user's cart. Lines carry no meaningful order.
type Cart struct {
	UserID string
	Lines  []Line
}

// Total returns the sum of unit price times quantity across all lines.
func (c *Cart) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Line returns the line for the given product, if present.
func (c *Cart) Line(productID string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// Repository defines persistence operations for carts. Get creates an empty
// persistent cart on first access and is idempotent. UpsertLine inserts the
// line or replaces the existing line for the same product. Clear empties the
// cart's lines without deleting the cart itself.
type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	UpsertLine(ctx context.Context, userID string, line Line) error
	RemoveLine(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
