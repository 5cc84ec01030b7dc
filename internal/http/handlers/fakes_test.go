package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"shopple/internal/auth"
	"shopple/internal/domain"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newRequest builds a request with an optional JSON body, {id} path value
// and session user
func newRequest(t *testing.T, method, target string, body interface{}, id string, userID uuid.UUID) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	if id != "" {
		req.SetPathValue("id", id)
	}
	if userID != uuid.Nil {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

type memoryProducts struct {
	domain.ProductRepository
	items      map[uuid.UUID]*domain.Product
	lastFilter domain.ProductFilter
	updated    *domain.Product
	clicks     int
}

func newMemoryProducts(products ...*domain.Product) *memoryProducts {
	m := &memoryProducts{items: map[uuid.UUID]*domain.Product{}}
	for _, p := range products {
		m.items[p.ID] = p
	}
	return m
}

func (m *memoryProducts) List(_ context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	m.lastFilter = filter
	var out []*domain.Product
	for _, p := range m.items {
		if p.IsHidden && !filter.IncludeHidden {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryProducts) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProducts) Create(_ context.Context, p *domain.Product) error {
	p.ID = uuid.New()
	m.items[p.ID] = p
	return nil
}

func (m *memoryProducts) Update(_ context.Context, p *domain.Product) error {
	if _, ok := m.items[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	m.updated = &cp
	return nil
}

func (m *memoryProducts) Delete(_ context.Context, id uuid.UUID, userID *uuid.UUID) error {
	p, ok := m.items[id]
	if !ok || (userID != nil && p.UserID != nil && *p.UserID != *userID) {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memoryProducts) IncrementClicks(_ context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	m.clicks++
	return nil
}

func (m *memoryProducts) Stats(_ context.Context, _ *uuid.UUID) (*domain.ProductStats, error) {
	return &domain.ProductStats{Products: int64(len(m.items))}, nil
}

type memoryUsers struct {
	domain.UserRepository
	byName map[string]*domain.User
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := m.byName[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

type countingCache struct {
	categories []*domain.Category
	refreshes  int
}

func (c *countingCache) GetAll() ([]*domain.Category, error) {
	return c.categories, nil
}

func (c *countingCache) Refresh(context.Context) error {
	c.refreshes++
	return nil
}

type recordingQueue struct {
	jobType  string
	payloads []interface{}
	err      error
}

func (q *recordingQueue) Enqueue(_ context.Context, jobType string, payload interface{}) error {
	if q.err != nil {
		return q.err
	}
	q.jobType = jobType
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *recordingQueue) GetQueueStats(context.Context, string) (map[string]int64, error) {
	return map[string]int64{"current_pending": int64(len(q.payloads))}, nil
}

func strPtr(s string) *string { return &s }
