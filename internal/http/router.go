package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shopple/internal/auth"
	"shopple/internal/domain"
	"shopple/internal/http/handlers"
	"shopple/internal/http/middleware"
	"shopple/internal/pkg/metrics"
	"shopple/internal/service/catalog"
	"shopple/internal/storage"
)

// loginAttemptsPerMinute bounds password guessing per client IP
const loginAttemptsPerMinute = 10

// Middleware represents a HTTP middleware function
type Middleware func(http.Handler) http.Handler

// Deps are the services the routes are served from. Queue may be nil when
// Redis is not configured.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Products   domain.ProductRepository
	Categories domain.CategoryRepository
	Users      domain.UserRepository
	Media      domain.MediaRepository
	Queue      handlers.RefreshQueue

	CategoryCache handlers.CategoryCache
	Extractor     catalog.ProductExtractor
	Importer      handlers.ProductImporter
	Reviews       handlers.ReviewGenerator
	Auth          *auth.Manager
	Store         *storage.LocalStore
	HealthChecks  map[string]handlers.HealthCheck

	ShopOwner         string
	AllowedOrigins    []string
	CookieSecure      bool
	ExtractTimeout    time.Duration
	ExtractRatePerMin int
	MediaBaseURL      string
}

type Router struct {
	mux  *http.ServeMux
	deps Deps

	healthHandler     *handlers.HealthHandler
	shopHandler       *handlers.ShopHandler
	productsHandler   *handlers.ProductsHandler
	authHandler       *handlers.AuthHandler
	adminProducts     *handlers.AdminProductsHandler
	extractHandler    *handlers.ExtractHandler
	categoriesHandler *handlers.CategoriesHandler
	mediaHandler      *handlers.MediaHandler
	profileHandler    *handlers.ProfileHandler
	statsHandler      *handlers.StatsHandler
}

func NewRouter(deps Deps) *Router {
	logger := deps.Logger
	owner := handlers.NewShopOwner(deps.Users, deps.ShopOwner)

	return &Router{
		mux:  http.NewServeMux(),
		deps: deps,

		healthHandler:     handlers.NewHealthHandler(logger, deps.HealthChecks),
		shopHandler:       handlers.NewShopHandler(logger, owner, deps.CategoryCache),
		productsHandler:   handlers.NewProductsHandler(logger, deps.Products, owner, deps.Reviews),
		authHandler:       handlers.NewAuthHandler(logger, deps.Auth, deps.CookieSecure),
		adminProducts:     handlers.NewAdminProductsHandler(logger, deps.Products, deps.Importer, deps.Queue, deps.CategoryCache, deps.ExtractTimeout),
		extractHandler:    handlers.NewExtractHandler(logger, deps.Extractor, deps.ExtractTimeout),
		categoriesHandler: handlers.NewCategoriesHandler(logger, deps.Categories, deps.CategoryCache),
		mediaHandler:      handlers.NewMediaHandler(logger, deps.Products, deps.Media, deps.Store),
		profileHandler:    handlers.NewProfileHandler(logger, deps.Users),
		statsHandler:      handlers.NewStatsHandler(logger, deps.Products, deps.Queue),
	}
}

// group registers routes that share a middleware chain
type group struct {
	mux        *http.ServeMux
	middleware []Middleware
}

// With returns a group running extra middleware after the group's own
func (g group) With(middleware ...Middleware) group {
	chain := make([]Middleware, 0, len(g.middleware)+len(middleware))
	chain = append(chain, g.middleware...)
	return group{mux: g.mux, middleware: append(chain, middleware...)}
}

// HandleFunc registers handler with all middleware applied, first added runs first
func (g group) HandleFunc(pattern string, handler http.HandlerFunc) {
	var h http.Handler = handler
	for i := len(g.middleware) - 1; i >= 0; i-- {
		h = g.middleware[i](h)
	}
	g.mux.Handle(pattern, h)
}

func (r *Router) SetupRoutes() http.Handler {
	logger := r.deps.Logger
	public := group{mux: r.mux}

	// Health check and metrics
	public.HandleFunc("GET /health", r.healthHandler.HandleHealth)
	r.mux.Handle("GET /metrics", r.deps.Metrics.Handler())

	// Uploaded media, when served from this process
	if strings.HasPrefix(r.deps.MediaBaseURL, "/") && r.deps.Store != nil {
		prefix := r.deps.MediaBaseURL + "/"
		r.mux.Handle("GET "+prefix, http.StripPrefix(r.deps.MediaBaseURL, r.deps.Store.Handler()))
	}

	// API v1 routes - storefront
	public.HandleFunc("GET /api/v1/shop", r.shopHandler.GetShop)
	public.HandleFunc("GET /api/v1/products", r.productsHandler.ListProducts)
	public.HandleFunc("GET /api/v1/products/{id}", r.productsHandler.GetProduct)
	public.HandleFunc("POST /api/v1/products/{id}/click", r.productsHandler.RecordClick)
	public.HandleFunc("POST /api/v1/products/{id}/share", r.productsHandler.RecordShare)
	public.HandleFunc("GET /api/v1/products/{id}/review", r.productsHandler.GetReview)

	// API v1 routes - session
	login := public.With(middleware.ClientRateLimit(loginAttemptsPerMinute, logger))
	login.HandleFunc("POST /api/v1/auth/login", r.authHandler.Login)
	public.HandleFunc("POST /api/v1/auth/logout", r.authHandler.Logout)

	// Admin routes
	admin := public.With(middleware.NewSessionAuth(r.deps.Auth, logger).Middleware)
	extraction := admin.With(middleware.RateLimit(r.deps.ExtractRatePerMin, logger))

	extraction.HandleFunc("POST /api/admin/extract", r.extractHandler.Extract)
	extraction.HandleFunc("POST /api/admin/products/import", r.adminProducts.ImportProduct)

	admin.HandleFunc("GET /api/admin/products", r.adminProducts.ListProducts)
	admin.HandleFunc("POST /api/admin/products", r.adminProducts.CreateProduct)
	admin.HandleFunc("GET /api/admin/products/{id}", r.adminProducts.GetProduct)
	admin.HandleFunc("PUT /api/admin/products/{id}", r.adminProducts.UpdateProduct)
	admin.HandleFunc("DELETE /api/admin/products/{id}", r.adminProducts.DeleteProduct)
	admin.HandleFunc("POST /api/admin/products/{id}/refresh", r.adminProducts.RefreshProduct)

	admin.HandleFunc("GET /api/admin/products/{id}/media", r.mediaHandler.ListMedia)
	admin.HandleFunc("POST /api/admin/products/{id}/media", r.mediaHandler.AddMedia)
	admin.HandleFunc("PUT /api/admin/products/{id}/media/order", r.mediaHandler.ReorderMedia)
	admin.HandleFunc("DELETE /api/admin/media/{id}", r.mediaHandler.DeleteMedia)
	admin.HandleFunc("POST /api/admin/uploads", r.mediaHandler.UploadFile)

	admin.HandleFunc("GET /api/admin/categories", r.categoriesHandler.ListCategories)
	admin.HandleFunc("POST /api/admin/categories", r.categoriesHandler.CreateCategory)
	admin.HandleFunc("POST /api/admin/categories/reorder", r.categoriesHandler.ReorderCategories)
	admin.HandleFunc("PUT /api/admin/categories/{id}", r.categoriesHandler.UpdateCategory)
	admin.HandleFunc("DELETE /api/admin/categories/{id}", r.categoriesHandler.DeleteCategory)

	admin.HandleFunc("GET /api/admin/profile", r.profileHandler.GetProfile)
	admin.HandleFunc("PUT /api/admin/profile", r.profileHandler.UpdateProfile)
	admin.HandleFunc("GET /api/admin/stats", r.statsHandler.HandleStats)

	// CORS answers preflights before anything else runs
	var h http.Handler = r.mux
	h = middleware.Observe(logger, r.deps.Metrics)(h)
	h = middleware.CORS(r.deps.AllowedOrigins)(h)
	return h
}
