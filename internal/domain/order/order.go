package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Line is an immutable snapshot of a cart line captured at checkout time.
// Later catalog edits cannot change a past order's displayed name or price.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

// Address is the shipping destination for an order. Line2 is optional; every
// other field is required at checkout.
type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

// Order is the result of a successful checkout. The commercial facts (lines,
// totals, address) are immutable; only the two status fields ever change.
type Order struct {
	ID              string
	Number          string
	UserID          string
	Lines           []Line
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	CouponCode      string
	ShippingAddress Address
	PaymentMethod   string
	Notes           string
	PaymentStatus   PaymentStatus
	Status          Status
	CreatedAt       time.Time
}

// Repository defines read and status-mutation operations for orders.
// Creation happens only through the checkout transaction (Store).
type Repository interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns all orders, newest first.
	List(ctx context.Context) ([]Order, error)
	// UpdateStatus sets the order status only if the current value still
	// matches from; it returns ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
	// UpdatePaymentStatus is the payment-side counterpart of UpdateStatus.
	UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus) error
}
