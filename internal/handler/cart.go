package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/pricing"
)

type cartLineResponse struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type totalsResponse struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

type cartResponse struct {
	Items  []cartLineResponse `json:"items"`
	Totals totalsResponse     `json:"totals"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartLineResponse, len(c.Lines))
	priceLines := make([]pricing.Line, len(c.Lines))
	for i, l := range c.Lines {
		items[i] = cartLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.Round(2).InexactFloat64(),
		}
		priceLines[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}

	totals := pricing.Compute(priceLines, decimal.Zero).Rounded()
	return cartResponse{
		Items:  items,
		Totals: toTotalsResponse(totals),
	}
}

func toTotalsResponse(t pricing.Totals) totalsResponse {
	return totalsResponse{
		Subtotal: t.Subtotal.InexactFloat64(),
		Tax:      t.Tax.InexactFloat64(),
		Shipping: t.Shipping.InexactFloat64(),
		Discount: t.Discount.InexactFloat64(),
		Total:    t.Total.InexactFloat64(),
	}
}

// GetCart returns the caller's cart with a totals preview, creating an empty
// cart on first access.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	c, err := h.carts.Get(r.Context(), id.UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddCartItem adds a product to the caller's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req addCartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		writeErrorStatus(w, http.StatusBadRequest, "productId is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetCartItemQuantity replaces a line's quantity; zero removes the line.
func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.carts.SetQuantity(r.Context(), id.UserID, r.PathValue("productID"), req.Quantity)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCartItem removes a product's line from the caller's cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), id.UserID, r.PathValue("productID"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// ClearCart empties the caller's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), id.UserID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
