package handler

import (
	"net/http"
	"time"

	"github.com/xenking/storefront/internal/domain/order"
)

type orderLineResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type addressResponse struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Number          string              `json:"number"`
	Items           []orderLineResponse `json:"items"`
	Totals          totalsResponse      `json:"totals"`
	CouponCode      string              `json:"couponCode,omitempty"`
	ShippingAddress addressResponse     `json:"shippingAddress"`
	PaymentMethod   string              `json:"paymentMethod"`
	Notes           string              `json:"notes,omitempty"`
	PaymentStatus   string              `json:"paymentStatus"`
	OrderStatus     string              `json:"orderStatus"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = orderLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.Round(2).InexactFloat64(),
			Quantity:  l.Quantity,
			Image:     l.Image,
		}
	}

	return orderResponse{
		ID:     o.ID,
		Number: o.Number,
		Items:  items,
		Totals: totalsResponse{
			Subtotal: o.Subtotal.Round(2).InexactFloat64(),
			Tax:      o.Tax.Round(2).InexactFloat64(),
			Shipping: o.Shipping.Round(2).InexactFloat64(),
			Discount: o.Discount.Round(2).InexactFloat64(),
			Total:    o.Total.Round(2).InexactFloat64(),
		},
		CouponCode: o.CouponCode,
		ShippingAddress: addressResponse{
			FullName:   o.ShippingAddress.FullName,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			State:      o.ShippingAddress.State,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
			Phone:      o.ShippingAddress.Phone,
		},
		PaymentMethod: o.PaymentMethod,
		Notes:         o.Notes,
		PaymentStatus: string(o.PaymentStatus),
		OrderStatus:   string(o.Status),
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderListResponse(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

// ListOrders returns the caller's orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), id.UserID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

// GetOrder returns a single order. Non-admin callers can only read their own.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	o, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if o.UserID != id.UserID && !id.Admin {
		// Indistinguishable from a missing order to avoid leaking existence.
		writeErrorStatus(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// AdminListOrders returns every order, newest first.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderListResponse(orders))
}

type updateStatusRequest struct {
	OrderStatus   string `json:"orderStatus,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// AdminUpdateOrderStatus transitions one of the order's two status fields.
func (h *Handler) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if (req.OrderStatus == "") == (req.PaymentStatus == "") {
		writeErrorStatus(w, http.StatusBadRequest, "exactly one of orderStatus or paymentStatus is required")
		return
	}

	var (
		o   *order.Order
		err error
	)
	if req.OrderStatus != "" {
		o, err = h.orders.SetStatus(r.Context(), r.PathValue("id"), order.Status(req.OrderStatus))
	} else {
		o, err = h.orders.SetPaymentStatus(r.Context(), r.PathValue("id"), order.PaymentStatus(req.PaymentStatus))
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
