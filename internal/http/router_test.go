package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shopple/internal/auth"
	"shopple/internal/domain"
	"shopple/internal/http/handlers"
	"shopple/internal/pkg/metrics"
	"shopple/internal/storage"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type routerUsers struct {
	domain.UserRepository
	users map[string]*domain.User
}

func (u *routerUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if user, ok := u.users[username]; ok {
		return user, nil
	}
	return nil, domain.ErrNotFound
}

func (u *routerUsers) Create(_ context.Context, user *domain.User) error {
	user.ID = uuid.New()
	u.users[user.Username] = user
	return nil
}

type routerProducts struct {
	domain.ProductRepository
}

func (routerProducts) List(context.Context, domain.ProductFilter) ([]*domain.Product, error) {
	return []*domain.Product{}, nil
}

func (routerProducts) Stats(context.Context, *uuid.UUID) (*domain.ProductStats, error) {
	return &domain.ProductStats{Products: 3}, nil
}

type staticCategories []*domain.Category

func (c staticCategories) GetAll() ([]*domain.Category, error) { return c, nil }
func (staticCategories) Refresh(context.Context) error         { return nil }

type testServer struct {
	handler http.Handler
	fs      afero.Fs
	store   *storage.LocalStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := createTestLogger()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &routerUsers{users: map[string]*domain.User{}}
	manager := auth.NewManager(auth.Config{
		Username:     "admin",
		PasswordHash: string(hash),
		Secret:       "0123456789abcdef0123456789abcdef",
		TTL:          time.Hour,
	}, users, logger)

	fs := afero.NewMemMapFs()
	store := storage.NewStore(fs, "/media", logger)

	router := NewRouter(Deps{
		Logger:            logger,
		Metrics:           metrics.New(),
		Products:          routerProducts{},
		Users:             users,
		CategoryCache:     staticCategories{{Name: "Everything", Slug: domain.CategoryEverything}},
		Auth:              manager,
		Store:             store,
		HealthChecks:      map[string]handlers.HealthCheck{"database": func(context.Context) error { return nil }},
		ShopOwner:         "admin",
		AllowedOrigins:    []string{"http://localhost:3000"},
		ExtractTimeout:    time.Second,
		ExtractRatePerMin: 30,
		MediaBaseURL:      "/media",
	})

	return &testServer{handler: router.SetupRoutes(), fs: fs, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"shop", http.MethodGet, "/api/v1/shop", http.StatusOK},
		{"products", http.MethodGet, "/api/v1/products", http.StatusOK},
		{"malformed product id", http.MethodGet, "/api/v1/products/abc", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/servers", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/v1/shop", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_AdminRequiresSession(t *testing.T) {
	srv := newTestServer(t)

	for _, target := range []string{"/api/admin/stats", "/api/admin/products", "/api/admin/profile"} {
		rec := srv.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestRouter_LoginThenAdmin(t *testing.T) {
	srv := newTestServer(t)

	body, err := json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	require.NoError(t, err)
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(cookies[0])
	rec = srv.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats handlers.StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(3), stats.Products.Products)
	assert.Nil(t, stats.Queue)
}

func TestRouter_RefreshWithoutQueue(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "hunter2"})
	rec := srv.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/products/"+uuid.NewString()+"/refresh", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	rec = srv.do(req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Preflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/extract", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := srv.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ServesMedia(t *testing.T) {
	srv := newTestServer(t)

	url, err := srv.store.Put(context.Background(), "owner/photo.png", "image/png", strings.NewReader("png bytes"))
	require.NoError(t, err)
	require.Equal(t, "/media/owner/photo.png", url)

	rec := srv.do(httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png bytes", rec.Body.String())
}
