// Package redis provides redis-backed caches for the lucky draw module.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

const catalogKey = "luckydraw:catalog"

// CatalogCache implements domain.CatalogCache using Redis, so multiple
// service instances share one normalized prize pool
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCatalogCache creates a new redis catalog cache
func NewCatalogCache(rdb *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get returns the cached catalog; an empty slice means cache miss
func (c *CatalogCache) Get(ctx context.Context) ([]domain.Prize, error) {
	data, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if err == redis.Nil {
		return []domain.Prize{}, nil
	}
	if err != nil {
		return nil, err
	}

	var catalog []domain.Prize
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Set stores the normalized catalog with the configured TTL
func (c *CatalogCache) Set(ctx context.Context, catalog []domain.Prize) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, catalogKey, data, c.ttl).Err()
}
