package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockCartRepo struct {
	lines map[string]Line
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{lines: make(map[string]Line)}
}

func (m *mockCartRepo) Get(_ context.Context, userID string) (*Cart, error) {
	c := &Cart{UserID: userID}
	for _, l := range m.lines {
		c.Lines = append(c.Lines, l)
	}
	return c, nil
}

func (m *mockCartRepo) UpsertLine(_ context.Context, _ string, line Line) error {
	m.lines[line.ProductID] = line
	return nil
}

func (m *mockCartRepo) RemoveLine(_ context.Context, _, productID string) error {
	delete(m.lines, productID)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error {
	m.lines = make(map[string]Line)
	return nil
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Tests ---

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "u1", "p1", 0)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc := NewService(newMockCartRepo(), newProductRepo())

	_, err := svc.AddItem(context.Background(), "u1", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAddItem_NewLine(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("9.99"), TrackQuantity: true, Stock: 5}
	svc := NewService(newMockCartRepo(), newProductRepo(p))

	c, err := svc.AddItem(context.Background(), "u1", "p1", 2)

	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.True(t, dec("9.99").Equal(c.Lines[0].UnitPrice))
	assert.True(t, dec("19.98").Equal(c.Total()))
}

func TestAddItem_AccumulatesQuantityAndReprices(t *testing.T) {
	repo := newMockCartRepo()
	products := newProductRepo(product.Product{ID: "p1", Name: "Widget", Price: dec("10.00")})
	svc := NewService(repo, products)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)

	// Catalog price changes between adds: the line is re-priced live.
	products.byID["p1"].Price = dec("12.00")

	c, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	line, ok := c.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, dec("12.00").Equal(line.UnitPrice))
}

func TestAddItem_InsufficientStock(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("10"), TrackQuantity: true, Stock: 3}
	svc := NewService(newMockCartRepo(), newProductRepo(p))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	// 2 in cart + 2 requested > 3 available.
	_, err = svc.AddItem(context.Background(), "u1", "p1", 2)

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, "p1", isErr.ProductID)
	assert.Equal(t, 3, isErr.Available)
}

func TestAddItem_UntrackedProductIgnoresStock(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Download", Price: dec("5"), TrackQuantity: false, Stock: 0}
	svc := NewService(newMockCartRepo(), newProductRepo(p))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 100)
	require.NoError(t, err)
}

func TestSetQuantity(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("10"), TrackQuantity: true, Stock: 10}
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(p))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	c, err := svc.SetQuantity(context.Background(), "u1", "p1", 5)
	require.NoError(t, err)
	line, _ := c.Line("p1")
	assert.Equal(t, 5, line.Quantity)

	// Zero removes the line.
	c, err = svc.SetQuantity(context.Background(), "u1", "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)

	_, err = svc.SetQuantity(context.Background(), "u1", "p1", -1)
	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
}

func TestSetQuantity_InsufficientStock(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("10"), TrackQuantity: true, Stock: 3}
	svc := NewService(newMockCartRepo(), newProductRepo(p))

	_, err := svc.SetQuantity(context.Background(), "u1", "p1", 4)

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
}

func TestClear(t *testing.T) {
	p := product.Product{ID: "p1", Name: "Widget", Price: dec("10")}
	repo := newMockCartRepo()
	svc := NewService(repo, newProductRepo(p))

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "u1"))

	c, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}
