package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"shopple/internal/domain"
)

// ReviewGenerator writes the review blurb shown on product pages
type ReviewGenerator interface {
	Generate(productTitle string) string
}

// ProductsHandler serves the public storefront
type ProductsHandler struct {
	logger   *slog.Logger
	products domain.ProductRepository
	owner    *ShopOwner
	reviews  ReviewGenerator
}

func NewProductsHandler(logger *slog.Logger, products domain.ProductRepository, owner *ShopOwner, reviews ReviewGenerator) *ProductsHandler {
	return &ProductsHandler{
		logger:   logger,
		products: products,
		owner:    owner,
		reviews:  reviews,
	}
}

// ProductsResponse wraps a product listing
type ProductsResponse struct {
	Products []*domain.Product `json:"products"`
	Category string            `json:"category,omitempty"`
}

// ListProducts handles GET /api/v1/products?category=<slug>
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	if category == domain.CategoryEverything {
		category = ""
	}

	filter := domain.ProductFilter{CategorySlug: category}
	owner, err := h.owner.Resolve(ctx)
	if err != nil {
		writeFailure(w, h.logger, err, "load shop owner")
		return
	}
	if owner != nil {
		filter.UserID = &owner.ID
	}

	products, err := h.products.List(ctx, filter)
	if err != nil {
		writeFailure(w, h.logger, err, "list products")
		return
	}

	h.logger.Debug("Listed products", "count", len(products), "category", category)
	writeJSON(w, h.logger, http.StatusOK, ProductsResponse{Products: products, Category: category})
}

// GetProduct handles GET /api/v1/products/{id}. Hidden products are not found.
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.visibleProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, product)
}

// RecordClick handles POST /api/v1/products/{id}/click
func (h *ProductsHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.products.IncrementClicks(r.Context(), id); err != nil {
		writeFailure(w, h.logger, err, "record click")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordShare handles POST /api/v1/products/{id}/share
func (h *ProductsHandler) RecordShare(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.products.IncrementShares(r.Context(), id); err != nil {
		writeFailure(w, h.logger, err, "record share")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetReview handles GET /api/v1/products/{id}/review
func (h *ProductsHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	product, ok := h.visibleProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"product_id": product.ID.String(),
		"review":     h.reviews.Generate(product.Title),
	})
}

func (h *ProductsHandler) visibleProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, h.logger, err, "get product")
		return nil, false
	}
	if product.IsHidden {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	return product, true
}
