package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"futuresbot/internal/filters"
)

// CatalogCache stores filter catalogs as JSON strings.
//
// Key schema:
//
//	futuresbot:catalog:{symbol} - filterType tagged catalog JSON
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCatalogCache creates a CatalogCache with the given expiry.
func NewCatalogCache(c *Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{rdb: c.rdb, ttl: ttl}
}

func catalogKey(symbol string) string { return "futuresbot:catalog:" + symbol }

// GetCatalog returns the cached catalog; ok is false on a miss.
func (cc *CatalogCache) GetCatalog(ctx context.Context, symbol string) (filters.Catalog, bool, error) {
	data, err := cc.rdb.Get(ctx, catalogKey(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return filters.Catalog{}, false, nil
		}
		return filters.Catalog{}, false, fmt.Errorf("redis: get catalog %s: %w", symbol, err)
	}

	catalog, err := decodeCatalog(data)
	if err != nil {
		return filters.Catalog{}, false, fmt.Errorf("redis: decode catalog %s: %w", symbol, err)
	}
	return catalog, true, nil
}

// SetCatalog stores a catalog with the cache TTL.
func (cc *CatalogCache) SetCatalog(ctx context.Context, catalog filters.Catalog) error {
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("redis: marshal catalog %s: %w", catalog.Symbol, err)
	}

	if err := cc.rdb.Set(ctx, catalogKey(catalog.Symbol), data, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set catalog %s: %w", catalog.Symbol, err)
	}
	return nil
}

func decodeCatalog(data []byte) (filters.Catalog, error) {
	var catalog filters.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return filters.Catalog{}, err
	}
	return catalog, nil
}
