package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  decimal.Decimal
	}{
		{
			name: "single line",
			lines: []Line{
				{UnitPrice: dec("50.00"), Quantity: 2},
			},
			want: dec("100.00"),
		},
		{
			name: "multiple lines",
			lines: []Line{
				{UnitPrice: dec("10.50"), Quantity: 3},
				{UnitPrice: dec("4.25"), Quantity: 1},
			},
			want: dec("35.75"),
		},
		{
			name:  "empty",
			lines: nil,
			want:  decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Subtotal(tt.lines)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestSubtotal_OrderIndependent(t *testing.T) {
	a := []Line{
		{UnitPrice: dec("3.33"), Quantity: 7},
		{UnitPrice: dec("19.99"), Quantity: 2},
		{UnitPrice: dec("0.01"), Quantity: 100},
	}
	b := []Line{a[2], a[0], a[1]}

	assert.True(t, Subtotal(a).Equal(Subtotal(b)))
}

func TestTax(t *testing.T) {
	assert.True(t, dec("10").Equal(Tax(dec("100"))))
	assert.True(t, decimal.Zero.Equal(Tax(decimal.Zero)))
	// No intermediate rounding: 10% of 0.05 stays exact.
	assert.True(t, dec("0.005").Equal(Tax(dec("0.05"))))
}

func TestShippingCost(t *testing.T) {
	tests := []struct {
		name     string
		subtotal decimal.Decimal
		want     decimal.Decimal
	}{
		{"below threshold", dec("99.99"), dec("10")},
		{"exactly at threshold pays fee", dec("100"), dec("10")},
		{"just above threshold is free", dec("100.01"), decimal.Zero},
		{"far above threshold is free", dec("5000"), decimal.Zero},
		{"zero subtotal", decimal.Zero, dec("10")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShippingCost(tt.subtotal)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestGrandTotal_FlooredAtZero(t *testing.T) {
	// Fixed discount of 15 against a 10 subtotal: 10 + 1 + 10 - 15 = 6, but a
	// bigger discount must never go negative.
	got := GrandTotal(dec("10"), dec("1"), dec("10"), dec("15"))
	assert.True(t, dec("6").Equal(got))

	got = GrandTotal(dec("10"), dec("1"), dec("10"), dec("100"))
	assert.True(t, decimal.Zero.Equal(got))
}

func TestCompute_NoCoupon(t *testing.T) {
	// Cart with one line: price 50, qty 2. Subtotal 100 is not strictly above
	// the threshold, so shipping applies: 100 + 10 + 10 = 120.
	totals := Compute([]Line{{UnitPrice: dec("50"), Quantity: 2}}, decimal.Zero)

	assert.True(t, dec("100").Equal(totals.Subtotal))
	assert.True(t, dec("10").Equal(totals.Tax))
	assert.True(t, dec("10").Equal(totals.Shipping))
	assert.True(t, dec("120").Equal(totals.Total))
}

func TestCompute_WithDiscount(t *testing.T) {
	// Same cart with a 20% coupon: 100 + 10 + 10 - 20 = 100.
	totals := Compute([]Line{{UnitPrice: dec("50"), Quantity: 2}}, dec("20"))

	assert.True(t, dec("20").Equal(totals.Discount))
	assert.True(t, dec("100").Equal(totals.Total))
}

func TestTotals_Rounded(t *testing.T) {
	totals := Totals{
		Subtotal: dec("10.005"),
		Tax:      dec("1.0005"),
		Shipping: dec("10"),
		Discount: dec("0.004"),
		Total:    dec("21.0015"),
	}.Rounded()

	assert.Equal(t, "10.01", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "1.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "0.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "21.00", totals.Total.StringFixed(2))
}
