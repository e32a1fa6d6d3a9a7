package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

// mockStore implements Store and Tx against in-memory state, recording every
// effect so tests can assert atomicity: when the callback fails, committed
// must stay false and the recorded effects are considered rolled back.
type mockStore struct {
	cartLines map[string][]cart.Line
	products  map[string]*product.Product

	reserveErr error
	redeemErr  error
	createErr  error

	reserved    map[string]int
	redeemed    []string
	created     *Order
	cartCleared bool
	committed   bool
}

func newMockStore(products ...product.Product) *mockStore {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockStore{
		cartLines: make(map[string][]cart.Line),
		products:  byID,
		reserved:  make(map[string]int),
	}
}

func (m *mockStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := fn(ctx, m); err != nil {
		return err
	}
	m.committed = true
	return nil
}

func (m *mockStore) CartLines(_ context.Context, userID string) ([]cart.Line, error) {
	return m.cartLines[userID], nil
}

func (m *mockStore) ProductsByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockStore) ReserveStock(_ context.Context, productID string, qty int) error {
	if m.reserveErr != nil {
		return m.reserveErr
	}
	m.reserved[productID] += qty
	return nil
}

func (m *mockStore) RedeemCoupon(_ context.Context, code string) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	m.redeemed = append(m.redeemed, code)
	return nil
}

func (m *mockStore) CreateOrder(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = o
	return nil
}

func (m *mockStore) ClearCart(_ context.Context, _ string) error {
	m.cartCleared = true
	return nil
}

type mockOrderRepo struct {
	byID             map[string]*Order
	updateErr        error
	updatedTo        Status
	updatedPaymentTo PaymentStatus
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, errors.New("order not found")
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, _ string) ([]Order, error) { return nil, nil }
func (m *mockOrderRepo) List(_ context.Context) ([]Order, error)                 { return nil, nil }

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, _, to Status) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.byID[id].Status = to
	m.updatedTo = to
	return nil
}

func (m *mockOrderRepo) UpdatePaymentStatus(_ context.Context, id string, _, to PaymentStatus) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.byID[id].PaymentStatus = to
	m.updatedPaymentTo = to
	return nil
}

type mockValidator struct {
	discount *coupon.Discount
	err      error

	gotCode   string
	gotAmount decimal.Decimal
}

func (m *mockValidator) Validate(_ context.Context, code string, amount decimal.Decimal) (*coupon.Discount, error) {
	m.gotCode = code
	m.gotAmount = amount
	if m.err != nil {
		return nil, m.err
	}
	return m.discount, nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validRequest(userID string) CheckoutRequest {
	return CheckoutRequest{
		UserID: userID,
		ShippingAddress: Address{
			FullName:   "Ada Lovelace",
			Line1:      "12 Analytical Way",
			City:       "London",
			State:      "LDN",
			PostalCode: "N1 9GU",
			Country:    "GB",
			Phone:      "+44 20 7946 0000",
		},
		PaymentMethod: "card",
	}
}

func newCheckoutService(store *mockStore, v coupon.Validator) *Service {
	svc := NewService(store, &mockOrderRepo{}, v)
	svc.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	svc.newNumber = func(time.Time) string { return "ORD-TEST-ABC123" }
	return svc
}

// --- Checkout tests ---

func TestCheckout_MissingAddressField(t *testing.T) {
	store := newMockStore()
	svc := newCheckoutService(store, &mockValidator{})

	req := validRequest("u1")
	req.ShippingAddress.City = ""

	_, err := svc.Checkout(context.Background(), req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "city", vErr.Field)
	assert.False(t, store.committed)
}

func TestCheckout_Line2Optional(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("10")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("10")}}
	svc := newCheckoutService(store, &mockValidator{})

	req := validRequest("u1")
	req.ShippingAddress.Line2 = ""

	_, err := svc.Checkout(context.Background(), req)
	require.NoError(t, err)
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := newMockStore()
	svc := newCheckoutService(store, &mockValidator{})

	_, err := svc.Checkout(context.Background(), validRequest("u1"))

	require.ErrorIs(t, err, ErrEmptyCart)
	assert.False(t, store.committed)
	assert.Empty(t, store.reserved)
	assert.Nil(t, store.created)
}

func TestCheckout_NoCoupon(t *testing.T) {
	// Price 50 x qty 2: subtotal 100, tax 10, shipping 10 (100 is not strictly
	// above the threshold), total 120.
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("50"), Image: "widget.jpg", TrackQuantity: true, Stock: 5}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("50")}}
	svc := newCheckoutService(store, &mockValidator{})

	o, err := svc.Checkout(context.Background(), validRequest("u1"))

	require.NoError(t, err)
	assert.True(t, dec("100").Equal(o.Subtotal))
	assert.True(t, dec("10").Equal(o.Tax))
	assert.True(t, dec("10").Equal(o.Shipping))
	assert.True(t, decimal.Zero.Equal(o.Discount))
	assert.True(t, dec("120").Equal(o.Total))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "ORD-TEST-ABC123", o.Number)

	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Widget", o.Lines[0].Name)
	assert.Equal(t, "widget.jpg", o.Lines[0].Image)

	assert.Equal(t, 2, store.reserved["p1"])
	assert.True(t, store.cartCleared)
	assert.True(t, store.committed)
	assert.Empty(t, store.redeemed)
}

func TestCheckout_WithPercentageCoupon(t *testing.T) {
	// Same cart with a 20% coupon: 100 + 10 + 10 - 20 = 100.
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("50")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("50")}}
	v := &mockValidator{discount: &coupon.Discount{Amount: dec("20")}}
	svc := newCheckoutService(store, v)

	req := validRequest("u1")
	req.CouponCode = "save20"

	o, err := svc.Checkout(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, dec("20").Equal(o.Discount))
	assert.True(t, dec("100").Equal(o.Total))
	assert.Equal(t, "SAVE20", o.CouponCode)
	assert.True(t, dec("100").Equal(v.gotAmount), "coupon validated against subtotal")
	assert.Equal(t, []string{"save20"}, store.redeemed)
}

func TestCheckout_FixedCouponExceedsTotal(t *testing.T) {
	// Fixed 15 against subtotal 10: total floors at zero, never negative.
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("10")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("10")}}
	v := &mockValidator{discount: &coupon.Discount{Amount: dec("25")}}
	svc := newCheckoutService(store, v)

	req := validRequest("u1")
	req.CouponCode = "BIGFIX"

	o, err := svc.Checkout(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, decimal.Zero.Equal(o.Total))
	assert.True(t, dec("25").Equal(o.Discount))
}

func TestCheckout_CouponFailureAbortsEverything(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("50")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("50")}}
	v := &mockValidator{err: coupon.ErrExpired}
	svc := newCheckoutService(store, v)

	req := validRequest("u1")
	req.CouponCode = "OLD"

	_, err := svc.Checkout(context.Background(), req)

	// The checkout fails with the coupon's reason; an order without the
	// discount is never substituted.
	require.ErrorIs(t, err, coupon.ErrExpired)
	assert.False(t, store.committed)
	assert.Nil(t, store.created)
	assert.False(t, store.cartCleared)
}

func TestCheckout_ProductVanishedAfterAdd(t *testing.T) {
	store := newMockStore()
	store.cartLines["u1"] = []cart.Line{{ProductID: "ghost", Quantity: 1, UnitPrice: dec("5")}}
	svc := newCheckoutService(store, &mockValidator{})

	_, err := svc.Checkout(context.Background(), validRequest("u1"))

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "ghost", pnfErr.ProductID)
	assert.False(t, store.committed)
}

func TestCheckout_StockExhaustedAborts(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("50"), TrackQuantity: true, Stock: 1}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 2, UnitPrice: dec("50")}}
	store.reserveErr = &InsufficientStockError{ProductID: "p1"}
	svc := newCheckoutService(store, &mockValidator{})

	_, err := svc.Checkout(context.Background(), validRequest("u1"))

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.False(t, store.committed)
	assert.Nil(t, store.created)
	assert.False(t, store.cartCleared)
}

func TestCheckout_RedeemLimitReachedAborts(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("50")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("50")}}
	store.redeemErr = coupon.ErrUsageLimitReached
	v := &mockValidator{discount: &coupon.Discount{Amount: dec("5")}}
	svc := newCheckoutService(store, v)

	req := validRequest("u1")
	req.CouponCode = "LIMITED"

	_, err := svc.Checkout(context.Background(), req)

	require.ErrorIs(t, err, coupon.ErrUsageLimitReached)
	assert.False(t, store.committed)
	assert.Nil(t, store.created)
}

func TestCheckout_CreateErrorAborts(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("50")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("50")}}
	store.createErr = errors.New("db write failed")
	svc := newCheckoutService(store, &mockValidator{})

	_, err := svc.Checkout(context.Background(), validRequest("u1"))

	require.Error(t, err)
	assert.False(t, store.committed)
	assert.False(t, store.cartCleared)
}

func TestCheckout_SnapshotUsesCartPriceNotCatalogPrice(t *testing.T) {
	// The line captured 40 at add time; the catalog has since moved to 99.
	// The snapshot keeps the captured price.
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("99")}
	store := newMockStore(p)
	store.cartLines["u1"] = []cart.Line{{ProductID: "p1", Quantity: 1, UnitPrice: dec("40")}}
	svc := newCheckoutService(store, &mockValidator{})

	o, err := svc.Checkout(context.Background(), validRequest("u1"))

	require.NoError(t, err)
	assert.True(t, dec("40").Equal(o.Lines[0].UnitPrice))
	assert.True(t, dec("40").Equal(o.Subtotal))
}

// --- Status transition tests ---

func TestSetStatus_ValidTransition(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{
		"o1": {ID: "o1", Status: StatusPending, PaymentStatus: PaymentPending},
	}}
	svc := NewService(newMockStore(), repo, &mockValidator{})

	o, err := svc.SetStatus(context.Background(), "o1", StatusProcessing)

	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Equal(t, StatusProcessing, repo.updatedTo)
}

func TestSetStatus_InvalidTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{"delivered is terminal", StatusDelivered, StatusPending},
		{"cancelled is terminal", StatusCancelled, StatusProcessing},
		{"no skipping to delivered", StatusPending, StatusDelivered},
		{"shipped cannot cancel", StatusShipped, StatusCancelled},
		{"no moving backwards", StatusShipped, StatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepo{byID: map[string]*Order{"o1": {ID: "o1", Status: tt.from}}}
			svc := NewService(newMockStore(), repo, &mockValidator{})

			_, err := svc.SetStatus(context.Background(), "o1", tt.to)
			require.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestSetStatus_UnknownStatus(t *testing.T) {
	svc := NewService(newMockStore(), &mockOrderRepo{}, &mockValidator{})

	_, err := svc.SetStatus(context.Background(), "o1", "teleported")
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetPaymentStatus(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{
		"o1": {ID: "o1", Status: StatusPending, PaymentStatus: PaymentPending},
	}}
	svc := NewService(newMockStore(), repo, &mockValidator{})

	o, err := svc.SetPaymentStatus(context.Background(), "o1", PaymentPaid)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)

	// Refund only after paid.
	o, err = svc.SetPaymentStatus(context.Background(), "o1", PaymentRefunded)
	require.NoError(t, err)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)

	_, err = svc.SetPaymentStatus(context.Background(), "o1", PaymentPaid)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	n1 := newOrderNumber(now)
	n2 := newOrderNumber(now)

	assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-Z]{6}$`, n1)
	assert.NotEqual(t, n1, n2, "random suffix should differ")
}
