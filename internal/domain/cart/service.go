package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// InvalidQuantityError indicates a requested quantity below one.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a tracked product cannot cover the
// requested quantity.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

// Service encapsulates cart business logic on top of the cart repository and
// the product catalog.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Get returns the user's cart, creating an empty one on first access.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// AddItem adds qty units of a product to the user's cart. When the product is
// already in the cart the quantities accumulate and the line's captured unit
// price is refreshed to the product's current price. For tracked products the
// accumulated quantity is checked against available stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	total := qty
	if existing, ok := c.Line(productID); ok {
		total += existing.Quantity
	}
	if !p.Available(total) {
		return nil, &InsufficientStockError{ProductID: productID, Available: p.Stock}
	}

	line := Line{ProductID: productID, Quantity: total, UnitPrice: p.Price}
	if err := s.carts.UpsertLine(ctx, userID, line); err != nil {
		return nil, errors.Wrap(err, "upsert cart line")
	}

	return s.carts.Get(ctx, userID)
}

// SetQuantity replaces the quantity of an existing line. A zero quantity
// removes the line; a negative one is invalid. The captured unit price is
// refreshed to the product's current price, consistent with AddItem.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}
	if qty == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}
	if !p.Available(qty) {
		return nil, &InsufficientStockError{ProductID: productID, Available: p.Stock}
	}

	line := Line{ProductID: productID, Quantity: qty, UnitPrice: p.Price}
	if err := s.carts.UpsertLine(ctx, userID, line); err != nil {
		return nil, errors.Wrap(err, "upsert cart line")
	}

	return s.carts.Get(ctx, userID)
}

// RemoveItem removes a product's line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if err := s.carts.RemoveLine(ctx, userID, productID); err != nil {
		return nil, errors.Wrap(err, "remove cart line")
	}
	return s.carts.Get(ctx, userID)
}

// Clear empties the user's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}
