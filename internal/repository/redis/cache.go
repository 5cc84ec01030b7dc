package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"shopple/internal/extractor"
)

const extractKeyPrefix = keyNamespace + "extract:"

// ProductCache shares extraction results between API instances. It satisfies
// extractor.Cache; Redis errors are logged and treated as misses.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductCache creates a cache whose entries expire after ttl
func NewProductCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *ProductCache) Get(ctx context.Context, key string) (extractor.Product, bool) {
	data, err := c.client.Get(ctx, extractKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Extraction cache read failed", "error", err, "key", key)
		}
		return extractor.Product{}, false
	}

	var product extractor.Product
	if err := json.Unmarshal(data, &product); err != nil {
		c.logger.Warn("Discarding corrupt cache entry", "error", err, "key", key)
		c.client.Del(ctx, extractKeyPrefix+key)
		return extractor.Product{}, false
	}
	return product, true
}

func (c *ProductCache) Set(ctx context.Context, key string, product extractor.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", "error", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, extractKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Extraction cache write failed", "error", err, "key", key)
	}
}
