package extractor

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"shopple/internal/pkg/urldetector"
)

// Cache stores successful extractions keyed by canonical URL
type Cache interface {
	Get(ctx context.Context, key string) (Product, bool)
	Set(ctx context.Context, key string, product Product)
}

// CacheKey canonicalizes rawURL so tracking-parameter variants share an entry
func CacheKey(rawURL string) string {
	if normalized, err := urldetector.NormalizeURL(rawURL); err == nil {
		return normalized
	}
	return strings.TrimSpace(rawURL)
}

// LRUCache is an in-process Cache with per-entry expiry
type LRUCache struct {
	entries *expirable.LRU[string, Product]
}

// NewLRUCache creates a cache holding at most size entries for ttl each
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 512
	}
	return &LRUCache{entries: expirable.NewLRU[string, Product](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) (Product, bool) {
	return c.entries.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key string, product Product) {
	c.entries.Add(key, product)
}

// Len reports the number of live entries
func (c *LRUCache) Len() int {
	return c.entries.Len()
}
