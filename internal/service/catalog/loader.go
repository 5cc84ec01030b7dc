package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"shopple/internal/domain"
)

// CategoryLister is the part of the category repository the loader reads
type CategoryLister interface {
	List(ctx context.Context) ([]*domain.Category, error)
}

// Loader keeps the shop's categories in memory for the public pages.
// Falls back to the default categories if the database is unavailable.
type Loader struct {
	repo   CategoryLister
	logger *slog.Logger

	mu         sync.RWMutex
	categories []*domain.Category
	bySlug     map[string]*domain.Category
	loaded     bool
	defaults   bool
}

// NewLoader creates a new category loader
func NewLoader(repo CategoryLister, logger *slog.Logger) *Loader {
	return &Loader{
		repo:   repo,
		logger: logger,
		bySlug: make(map[string]*domain.Category),
	}
}

// Load fetches categories with their product counts and caches them
func (l *Loader) Load(ctx context.Context) error {
	categories, err := l.repo.List(ctx)
	if err != nil {
		l.logger.Warn("Failed to load categories from database, falling back to defaults",
			"error", err,
		)
		l.store(defaultCategories(), true)
		return nil
	}

	l.store(categories, false)
	l.logger.Debug("Categories loaded", "count", len(categories))
	return nil
}

// Refresh reloads categories after the catalog changed
func (l *Loader) Refresh(ctx context.Context) error {
	return l.Load(ctx)
}

func (l *Loader) store(categories []*domain.Category, defaults bool) {
	bySlug := make(map[string]*domain.Category, len(categories))
	for _, c := range categories {
		bySlug[c.Slug] = c
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.categories = categories
	l.bySlug = bySlug
	l.loaded = true
	l.defaults = defaults
}

func defaultCategories() []*domain.Category {
	defaults := domain.GetDefaultCategories()
	categories := make([]*domain.Category, 0, len(defaults))
	for _, d := range defaults {
		description := d.Description
		categories = append(categories, &domain.Category{
			ID:           uuid.NewSHA1(uuid.NameSpaceURL, []byte("shopple:category:"+d.Slug)),
			Name:         d.Name,
			Slug:         d.Slug,
			Description:  &description,
			IsDefault:    d.IsDefault,
			DisplayOrder: d.DisplayOrder,
		})
	}
	return categories
}

// GetAll returns the cached categories in display order
func (l *Loader) GetAll() ([]*domain.Category, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.loaded {
		return nil, fmt.Errorf("categories not loaded yet")
	}

	categories := make([]*domain.Category, len(l.categories))
	copy(categories, l.categories)
	return categories, nil
}

// GetBySlug retrieves a cached category
func (l *Loader) GetBySlug(slug string) (*domain.Category, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.loaded {
		return nil, fmt.Errorf("categories not loaded yet")
	}

	category, ok := l.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", slug, domain.ErrNotFound)
	}
	return category, nil
}

// UsingDefaults reports whether the cache holds the built-in categories
func (l *Loader) UsingDefaults() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.defaults
}

// Count returns the number of cached categories
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.categories)
}
