package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"shopple/internal/domain"
)

// CategoriesHandler manages categories. Every mutation refreshes the cached
// list served to the shop page.
type CategoriesHandler struct {
	logger *slog.Logger
	repo   domain.CategoryRepository
	cache  CategoryCache
}

func NewCategoriesHandler(logger *slog.Logger, repo domain.CategoryRepository, cache CategoryCache) *CategoriesHandler {
	return &CategoriesHandler{
		logger: logger,
		repo:   repo,
		cache:  cache,
	}
}

// CategoryRequest is the body of create and update requests
type CategoryRequest struct {
	Name         *string `json:"name"`
	Slug         *string `json:"slug"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
}

// ReorderRequest lists ids in their new order
type ReorderRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// ListCategories handles GET /api/admin/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.List(r.Context())
	if err != nil {
		writeFailure(w, h.logger, err, "list categories")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"categories": categories})
}

// CreateCategory handles POST /api/admin/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	category := &domain.Category{
		Name:        strings.TrimSpace(*req.Name),
		Description: req.Description,
	}
	if req.Slug != nil {
		category.Slug = domain.Slugify(*req.Slug)
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}

	if err := h.repo.Create(r.Context(), category); err != nil {
		writeFailure(w, h.logger, err, "create category")
		return
	}
	h.refresh(r)

	h.logger.Info("Category created", "category_id", category.ID, "slug", category.Slug)
	writeJSON(w, h.logger, http.StatusCreated, category)
}

// UpdateCategory handles PUT /api/admin/categories/{id}
func (h *CategoriesHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeFailure(w, h.logger, err, "get category")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		if name != category.Name && req.Slug == nil {
			category.Slug = domain.Slugify(name)
		}
		category.Name = name
	}
	if req.Slug != nil {
		category.Slug = domain.Slugify(*req.Slug)
	}
	if category.Slug == "" {
		category.Slug = domain.Slugify(category.Name)
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if req.DisplayOrder != nil {
		category.DisplayOrder = *req.DisplayOrder
	}

	if err := h.repo.Update(r.Context(), category); err != nil {
		writeFailure(w, h.logger, err, "update category")
		return
	}
	h.refresh(r)

	writeJSON(w, h.logger, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/admin/categories/{id}
func (h *CategoriesHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeFailure(w, h.logger, err, "delete category")
		return
	}
	h.refresh(r)

	h.logger.Info("Category deleted", "category_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ReorderCategories handles POST /api/admin/categories/reorder
func (h *CategoriesHandler) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := h.repo.Reorder(r.Context(), req.IDs); err != nil {
		writeFailure(w, h.logger, err, "reorder categories")
		return
	}
	h.refresh(r)

	w.WriteHeader(http.StatusNoContent)
}

func (h *CategoriesHandler) refresh(r *http.Request) {
	if err := h.cache.Refresh(r.Context()); err != nil {
		h.logger.Warn("Failed to refresh categories", "error", err)
	}
}
