package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"shopple/internal/domain"
	"shopple/internal/service/catalog"
)

// ProductImporter turns a marketplace link into a stored product
type ProductImporter interface {
	Import(ctx context.Context, userID uuid.UUID, rawURL string, categoryIDs []uuid.UUID) (*catalog.ImportResult, error)
}

// RefreshQueue schedules background product refreshes
type RefreshQueue interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) error
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

// AdminProductsHandler handles product management for the signed in owner
type AdminProductsHandler struct {
	logger     *slog.Logger
	products   domain.ProductRepository
	importer   ProductImporter
	queue      RefreshQueue
	categories CategoryCache
	timeout    time.Duration
}

// NewAdminProductsHandler creates the handler. queue may be nil when Redis is
// not configured; refresh requests then fail with 503. importTimeout bounds
// each link import the same way extraction previews are bounded.
func NewAdminProductsHandler(
	logger *slog.Logger,
	products domain.ProductRepository,
	importer ProductImporter,
	queue RefreshQueue,
	categories CategoryCache,
	importTimeout time.Duration,
) *AdminProductsHandler {
	return &AdminProductsHandler{
		logger:     logger,
		products:   products,
		importer:   importer,
		queue:      queue,
		categories: categories,
		timeout:    importTimeout,
	}
}

// ProductRequest is the body of create and update requests. Nil fields are
// left unchanged on update.
type ProductRequest struct {
	Title              *string      `json:"title"`
	Description        *string      `json:"description"`
	Price              *float64     `json:"price"`
	DiscountPercentage *int         `json:"discount_percentage"`
	ImageURL           *string      `json:"image_url"`
	Source             *string      `json:"source"`
	SourceURL          *string      `json:"source_url"`
	Rating             *float64     `json:"rating"`
	ReviewCount        *int         `json:"review_count"`
	IsHidden           *bool        `json:"is_hidden"`
	IsPinned           *bool        `json:"is_pinned"`
	IsCommissionable   *bool        `json:"is_commissionable"`
	Commission         *float64     `json:"commission"`
	CategoryIDs        *[]uuid.UUID `json:"category_ids"`
}

// Validate checks ranges shared by create and update
func (req *ProductRequest) Validate() error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return errors.New("title cannot be empty")
	}
	if req.Price != nil && *req.Price < 0 {
		return errors.New("price cannot be negative")
	}
	if req.DiscountPercentage != nil && (*req.DiscountPercentage < 0 || *req.DiscountPercentage > 100) {
		return errors.New("discount_percentage must be between 0 and 100")
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 5) {
		return errors.New("rating must be between 0 and 5")
	}
	if req.ReviewCount != nil && *req.ReviewCount < 0 {
		return errors.New("review_count cannot be negative")
	}
	return nil
}

func (req *ProductRequest) apply(p *domain.Product) {
	if req.Title != nil {
		p.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Price != nil {
		p.Price = req.Price
	}
	if req.DiscountPercentage != nil {
		p.DiscountPercentage = req.DiscountPercentage
	}
	if req.ImageURL != nil {
		p.ImageURL = req.ImageURL
	}
	if req.Source != nil {
		p.Source = req.Source
	}
	if req.SourceURL != nil {
		p.SourceURL = req.SourceURL
	}
	if req.Rating != nil {
		p.Rating = req.Rating
	}
	if req.ReviewCount != nil {
		p.ReviewCount = *req.ReviewCount
	}
	if req.IsHidden != nil {
		p.IsHidden = *req.IsHidden
	}
	if req.IsPinned != nil {
		p.IsPinned = *req.IsPinned
	}
	if req.IsCommissionable != nil {
		p.IsCommissionable = *req.IsCommissionable
	}
	if req.Commission != nil {
		p.Commission = *req.Commission
	}
	if req.CategoryIDs != nil {
		p.CategoryIDs = *req.CategoryIDs
		if p.CategoryIDs == nil {
			p.CategoryIDs = []uuid.UUID{}
		}
	}
}

// ListProducts handles GET /api/admin/products, hidden products included
func (h *AdminProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	filter := domain.ProductFilter{
		UserID:        &userID,
		CategorySlug:  r.URL.Query().Get("category"),
		IncludeHidden: true,
	}
	if filter.CategorySlug == domain.CategoryEverything {
		filter.CategorySlug = ""
	}

	products, err := h.products.List(r.Context(), filter)
	if err != nil {
		writeFailure(w, h.logger, err, "list products")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ProductsResponse{Products: products, Category: filter.CategorySlug})
}

// CreateProduct handles POST /api/admin/products
func (h *AdminProductsHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == nil {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product := &domain.Product{UserID: &userID, CategoryIDs: []uuid.UUID{}}
	req.apply(product)

	if err := h.products.Create(r.Context(), product); err != nil {
		writeFailure(w, h.logger, err, "create product")
		return
	}
	h.refreshCategories(r.Context())

	h.logger.Info("Product created", "product_id", product.ID, "title", product.Title)
	writeJSON(w, h.logger, http.StatusCreated, product)
}

// GetProduct handles GET /api/admin/products/{id}
func (h *AdminProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.ownedProduct(w, r)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, product)
}

// UpdateProduct handles PUT /api/admin/products/{id}
func (h *AdminProductsHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.ownedProduct(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Links are only rewritten when the request names them
	linked := product.CategoryIDs
	product.CategoryIDs = nil
	req.apply(product)

	if err := h.products.Update(r.Context(), product); err != nil {
		writeFailure(w, h.logger, err, "update product")
		return
	}
	if product.CategoryIDs == nil {
		product.CategoryIDs = linked
	}
	if req.CategoryIDs != nil {
		h.refreshCategories(r.Context())
	}

	h.logger.Info("Product updated", "product_id", product.ID)
	writeJSON(w, h.logger, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/admin/products/{id}
func (h *AdminProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id, &userID); err != nil {
		writeFailure(w, h.logger, err, "delete product")
		return
	}
	h.refreshCategories(r.Context())

	h.logger.Info("Product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// RefreshProduct handles POST /api/admin/products/{id}/refresh by queueing
// a background re-extraction of the product's source link
func (h *AdminProductsHandler) RefreshProduct(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "Background refresh is not configured")
		return
	}

	product, ok := h.ownedProduct(w, r)
	if !ok {
		return
	}
	if product.SourceURL == nil || *product.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "Product has no source URL")
		return
	}

	payload := domain.RefreshPayload{ProductID: product.ID.String(), URL: *product.SourceURL}
	if err := h.queue.Enqueue(r.Context(), domain.JobTypeRefreshProduct, payload); err != nil {
		h.logger.Error("Failed to enqueue refresh", "product_id", product.ID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "Failed to queue refresh")
		return
	}

	h.logger.Info("Product refresh queued", "product_id", product.ID)
	writeJSON(w, h.logger, http.StatusAccepted, map[string]string{"status": "queued"})
}

// ImportRequest is the body of POST /api/admin/products/import
type ImportRequest struct {
	URL         string      `json:"url"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
}

// ImportProduct handles POST /api/admin/products/import
func (h *AdminProductsHandler) ImportProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return
	}

	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.importer.Import(ctx, userID, req.URL, req.CategoryIDs)
	if err != nil {
		writeFailure(w, h.logger, err, "import product")
		return
	}
	h.refreshCategories(r.Context())

	writeJSON(w, h.logger, http.StatusCreated, result)
}

func (h *AdminProductsHandler) ownedProduct(w http.ResponseWriter, r *http.Request) (*domain.Product, bool) {
	userID, ok := sessionUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, h.logger, err, "get product")
		return nil, false
	}
	if !ownedBy(product, userID) {
		writeError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	return product, true
}

// refreshCategories keeps the cached product counts current
func (h *AdminProductsHandler) refreshCategories(ctx context.Context) {
	if err := h.categories.Refresh(ctx); err != nil {
		h.logger.Warn("Failed to refresh categories", "error", err)
	}
}
