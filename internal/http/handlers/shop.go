package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"shopple/internal/domain"
)

// CategoryCache serves categories to the public pages
type CategoryCache interface {
	GetAll() ([]*domain.Category, error)
	Refresh(ctx context.Context) error
}

// ShopOwner resolves the user whose storefront is public
type ShopOwner struct {
	users    domain.UserRepository
	username string
}

func NewShopOwner(users domain.UserRepository, username string) *ShopOwner {
	return &ShopOwner{users: users, username: username}
}

// Resolve returns the owner, or nil when the catalog has not been seeded yet
func (o *ShopOwner) Resolve(ctx context.Context) (*domain.User, error) {
	user, err := o.users.GetByUsername(ctx, o.username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

type ShopHandler struct {
	logger     *slog.Logger
	owner      *ShopOwner
	categories CategoryCache
}

func NewShopHandler(logger *slog.Logger, owner *ShopOwner, categories CategoryCache) *ShopHandler {
	return &ShopHandler{
		logger:     logger,
		owner:      owner,
		categories: categories,
	}
}

// ShopResponse is the storefront header: who runs the shop and its categories
type ShopResponse struct {
	Profile    *domain.User       `json:"profile"`
	Categories []*domain.Category `json:"categories"`
}

// GetShop handles GET /api/v1/shop
func (h *ShopHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, err := h.owner.Resolve(ctx)
	if err != nil {
		writeFailure(w, h.logger, err, "load shop owner")
		return
	}

	categories, err := h.categories.GetAll()
	if err != nil {
		h.logger.Error("Failed to get categories", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Categories unavailable")
		return
	}

	resp := ShopResponse{Categories: categories}
	if owner != nil {
		public := *owner
		public.Email = nil
		resp.Profile = &public
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
