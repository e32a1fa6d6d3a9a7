package handler

import (
	"net/http"

	"github.com/xenking/storefront/internal/domain/product"
)

type productResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Image    string  `json:"image,omitempty"`
	InStock  bool    `json:"inStock"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price.Round(2).InexactFloat64(),
		Category: p.Category,
		Image:    p.Image,
		InStock:  p.Available(1),
	}
}

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProductResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a single catalog item by id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}
