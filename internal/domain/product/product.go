package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Stock is only
// meaningful when TrackQuantity is set; untracked products never run out.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	Category      string
	Image         string
	TrackQuantity bool
	Stock         int
}

// Available reports whether qty units can be taken from stock.
func (p Product) Available(qty int) bool {
	return !p.TrackQuantity || p.Stock >= qty
}

// Repository defines read operations for the product catalog. Stock mutation
// is deliberately absent: decrements happen only inside the checkout
// transaction via the order store.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
