package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validateCouponRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type validateCouponResponse struct {
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	Description string  `json:"description,omitempty"`
}

// ValidateCoupon checks a coupon against a prospective order amount for
// pre-checkout display. No usage slot is consumed.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}

	var req validateCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		writeErrorStatus(w, http.StatusBadRequest, "code is required")
		return
	}

	d, err := h.coupons.Validate(r.Context(), req.Code, req.Amount)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, validateCouponResponse{
		Code:        req.Code,
		Discount:    d.Amount.Round(2).InexactFloat64(),
		Description: d.Description,
	})
}
