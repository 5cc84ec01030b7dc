package handlers

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopple/internal/auth"
	"shopple/internal/domain"
	"shopple/internal/storage"
)

type memoryCategories struct {
	domain.CategoryRepository
	items map[uuid.UUID]*domain.Category
	order []uuid.UUID
}

func (m *memoryCategories) GetByID(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryCategories) Create(_ context.Context, c *domain.Category) error {
	if c.Slug == "" {
		c.Slug = domain.Slugify(c.Name)
	}
	for _, existing := range m.items {
		if existing.Slug == c.Slug {
			return domain.ErrAlreadyExists
		}
	}
	c.ID = uuid.New()
	m.items[c.ID] = c
	return nil
}

func (m *memoryCategories) Update(_ context.Context, c *domain.Category) error {
	m.items[c.ID] = c
	return nil
}

func (m *memoryCategories) Delete(_ context.Context, id uuid.UUID) error {
	c, ok := m.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.IsDefault {
		return domain.ErrDefaultCategory
	}
	delete(m.items, id)
	return nil
}

func (m *memoryCategories) Reorder(_ context.Context, ids []uuid.UUID) error {
	m.order = ids
	return nil
}

func TestCategoriesHandler_CreateCategory(t *testing.T) {
	repo := &memoryCategories{items: map[uuid.UUID]*domain.Category{}}
	cache := &countingCache{}
	h := NewCategoriesHandler(createTestLogger(), repo, cache)

	rec := httptest.NewRecorder()
	h.CreateCategory(rec, newRequest(t, http.MethodPost, "/", CategoryRequest{Name: strPtr("Gaming Chairs")}, "", uuid.New()))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Category
	decodeBody(t, rec, &created)
	assert.Equal(t, "gaming-chairs", created.Slug)
	assert.Equal(t, 1, cache.refreshes)

	rec = httptest.NewRecorder()
	h.CreateCategory(rec, newRequest(t, http.MethodPost, "/", CategoryRequest{Name: strPtr("gaming  chairs")}, "", uuid.New()))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateCategory(rec, newRequest(t, http.MethodPost, "/", CategoryRequest{}, "", uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoriesHandler_DeleteCategory(t *testing.T) {
	everything := &domain.Category{ID: uuid.New(), Name: "Everything", Slug: domain.CategoryEverything, IsDefault: true}
	desks := &domain.Category{ID: uuid.New(), Name: "Desks", Slug: "desks"}
	repo := &memoryCategories{items: map[uuid.UUID]*domain.Category{everything.ID: everything, desks.ID: desks}}
	h := NewCategoriesHandler(createTestLogger(), repo, &countingCache{})

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"default category", everything.ID.String(), http.StatusConflict},
		{"regular category", desks.ID.String(), http.StatusNoContent},
		{"already deleted", desks.ID.String(), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.DeleteCategory(rec, newRequest(t, http.MethodDelete, "/", nil, tt.id, uuid.New()))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCategoriesHandler_UpdateAndReorder(t *testing.T) {
	desks := &domain.Category{ID: uuid.New(), Name: "Desks", Slug: "desks"}
	repo := &memoryCategories{items: map[uuid.UUID]*domain.Category{desks.ID: desks}}
	cache := &countingCache{}
	h := NewCategoriesHandler(createTestLogger(), repo, cache)

	rec := httptest.NewRecorder()
	h.UpdateCategory(rec, newRequest(t, http.MethodPut, "/", CategoryRequest{Slug: strPtr("Standing Desks")}, desks.ID.String(), uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "standing-desks", repo.items[desks.ID].Slug)
	assert.Equal(t, "Desks", repo.items[desks.ID].Name)

	rec = httptest.NewRecorder()
	h.UpdateCategory(rec, newRequest(t, http.MethodPut, "/", CategoryRequest{Name: strPtr("Office Desks")}, desks.ID.String(), uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "office-desks", repo.items[desks.ID].Slug, "slug follows a renamed category")

	ids := []uuid.UUID{uuid.New(), desks.ID}
	rec = httptest.NewRecorder()
	h.ReorderCategories(rec, newRequest(t, http.MethodPut, "/", ReorderRequest{IDs: ids}, "", uuid.New()))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, ids, repo.order)
	assert.Equal(t, 3, cache.refreshes)
}

type memoryMedia struct {
	domain.MediaRepository
	items []*domain.Media
}

func (m *memoryMedia) Add(_ context.Context, item *domain.Media) error {
	item.ID = uuid.New()
	item.SortOrder = len(m.items)
	m.items = append(m.items, item)
	return nil
}

func (m *memoryMedia) Delete(_ context.Context, id uuid.UUID) (*domain.Media, error) {
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return item, nil
		}
	}
	return nil, domain.ErrNotFound
}

func multipartRequest(t *testing.T, target, kind, fileName, contentType string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if kind != "" {
		require.NoError(t, mw.WriteField("kind", kind))
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestMediaHandler_AddAndDeleteMedia(t *testing.T) {
	userID := uuid.New()
	product := &domain.Product{ID: uuid.New(), Title: "Lamp", UserID: &userID}
	fs := afero.NewMemMapFs()
	store := storage.NewStore(fs, "/media", createTestLogger())
	media := &memoryMedia{}
	h := NewMediaHandler(createTestLogger(), newMemoryProducts(product), media, store)

	req := multipartRequest(t, "/", "", "lamp.png", "image/png", []byte("png bytes"))
	req.SetPathValue("id", product.ID.String())
	req = req.WithContext(auth.WithUserID(req.Context(), userID))

	rec := httptest.NewRecorder()
	h.AddMedia(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp MediaResponse
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.Media)
	assert.Equal(t, domain.MediaTypeImage, resp.Media.Type)
	assert.True(t, strings.HasPrefix(resp.Media.URL, "/media/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(resp.Media.URL, ".png"))
	require.Len(t, media.items, 1)

	stored := strings.TrimPrefix(resp.Media.URL, "/media")
	exists, err := afero.Exists(fs, stored)
	require.NoError(t, err)
	assert.True(t, exists)

	rec = httptest.NewRecorder()
	h.DeleteMedia(rec, newRequest(t, http.MethodDelete, "/", nil, resp.Media.ID.String(), userID))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, media.items)

	exists, err = afero.Exists(fs, stored)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMediaHandler_UploadRejectsWrongType(t *testing.T) {
	userID := uuid.New()
	h := NewMediaHandler(createTestLogger(), newMemoryProducts(), &memoryMedia{},
		storage.NewStore(afero.NewMemMapFs(), "/media", createTestLogger()))

	tests := []struct {
		name        string
		kind        string
		contentType string
	}{
		{"pdf as image", "", "application/pdf"},
		{"image as video", "video", "image/png"},
		{"unknown kind", "audio", "audio/mpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, "/api/admin/uploads", tt.kind, "file.bin", tt.contentType, []byte("x"))
			req = req.WithContext(auth.WithUserID(req.Context(), userID))

			rec := httptest.NewRecorder()
			h.UploadFile(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

type stubAuthenticator struct {
	session *auth.Session
	err     error
}

func (s *stubAuthenticator) Login(context.Context, string, string) (*auth.Session, error) {
	return s.session, s.err
}

func TestAuthHandler_Login(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	session := &auth.Session{Token: "signed", ExpiresAt: expires, User: &domain.User{Username: "admin"}}

	t.Run("valid credentials set the cookie", func(t *testing.T) {
		h := NewAuthHandler(createTestLogger(), &stubAuthenticator{session: session}, true)
		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(t, http.MethodPost, "/", LoginRequest{Username: "admin", Password: "pw"}, "", uuid.Nil))

		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, auth.CookieName, cookies[0].Name)
		assert.Equal(t, "signed", cookies[0].Value)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("wrong password", func(t *testing.T) {
		h := NewAuthHandler(createTestLogger(), &stubAuthenticator{err: auth.ErrInvalidCredentials}, false)
		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(t, http.MethodPost, "/", LoginRequest{Username: "admin", Password: "bad"}, "", uuid.Nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("missing fields", func(t *testing.T) {
		h := NewAuthHandler(createTestLogger(), &stubAuthenticator{}, false)
		rec := httptest.NewRecorder()
		h.Login(rec, newRequest(t, http.MethodPost, "/", LoginRequest{Username: "admin"}, "", uuid.Nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	h := NewAuthHandler(createTestLogger(), &stubAuthenticator{}, false)
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestHealthHandler_ReportsDegraded(t *testing.T) {
	h := NewHealthHandler(createTestLogger(), map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Components["database"])
	assert.Equal(t, "unhealthy", body.Components["redis"])
}
