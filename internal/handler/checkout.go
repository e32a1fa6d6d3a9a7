package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/domain/order"
)

type addressRequest struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type checkoutRequest struct {
	ShippingAddress addressRequest `json:"shippingAddress"`
	PaymentMethod   string         `json:"paymentMethod"`
	Notes           string         `json:"notes,omitempty"`
	CouponCode      string         `json:"couponCode,omitempty"`
}

// Checkout converts the caller's cart into an order. On failure the response
// carries a single reason for the failing step and no partial order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID: id.UserID,
		ShippingAddress: order.Address{
			FullName:   req.ShippingAddress.FullName,
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			State:      req.ShippingAddress.State,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
			Phone:      req.ShippingAddress.Phone,
		},
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}
