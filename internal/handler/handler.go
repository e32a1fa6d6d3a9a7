// Package handler exposes the storefront API over HTTP, translating JSON
// requests into domain calls and domain errors into stable error payloads.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/repository"
)

// Handler implements the storefront HTTP API on top of the domain services.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	orders   *order.Service
	coupons  coupon.Validator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	carts *cart.Service,
	orders *order.Service,
	coupons coupon.Validator,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		coupons:  coupons,
	}
}

// Routes mounts every API endpoint on a fresh mux. Authentication has already
// resolved the caller's identity by the time these handlers run.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PUT /api/cart/items/{productID}", h.SetCartItemQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{productID}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("POST /api/coupons/validate", h.ValidateCoupon)

	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.GetOrder)

	mux.HandleFunc("GET /api/admin/orders", h.AdminListOrders)
	mux.HandleFunc("PATCH /api/admin/orders/{id}/status", h.AdminUpdateOrderStatus)

	return mux
}

// errorResponse is the envelope for every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeError maps a domain error onto the API error taxonomy: validation 400,
// not-found 404, precondition 422, conflict 409. Anything unrecognized is an
// internal error: logged with full context, surfaced as a generic message.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		vErr  *order.ValidationError
		iqErr *cart.InvalidQuantityError
		mpErr *coupon.MinPurchaseError
		csErr *cart.InsufficientStockError
		osErr *order.InsufficientStockError
		pnErr *order.ProductNotFoundError
	)

	switch {
	case errors.As(err, &vErr),
		errors.As(err, &iqErr),
		errors.Is(err, order.ErrInvalidStatus):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		writeErrorStatus(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.As(err, &mpErr),
		errors.As(err, &csErr),
		errors.As(err, &pnErr):
		writeErrorStatus(w, http.StatusUnprocessableEntity, err.Error())

	case errors.As(err, &osErr),
		errors.Is(err, order.ErrStatusConflict),
		errors.Is(err, order.ErrInvalidTransition):
		writeErrorStatus(w, http.StatusConflict, err.Error())

	default:
		zctx.From(ctx).Error("request failed", zap.Error(err))
		writeErrorStatus(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
