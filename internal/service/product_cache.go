package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/djdiptayan1/HRone/internal/domain"
	"github.com/djdiptayan1/HRone/pkg/mylogger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProductCache keeps full products in redis under product:<id>. Cache
// failures are logged and treated as misses.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewProductCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ProductCache {
	return &ProductCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func (c *ProductCache) Get(ctx context.Context, id string) (*domain.Product, bool) {
	val, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			mylogger.Warn(ctx, c.logger, "Failed to read product cache", zap.String("id", id), zap.Error(err))
		}

		return nil, false
	}

	var product domain.Product
	if err := json.Unmarshal(val, &product); err != nil {
		mylogger.Warn(ctx, c.logger, "Corrupted product cache entry", zap.String("id", id), zap.Error(err))

		return nil, false
	}

	return &product, true
}

func (c *ProductCache) Set(ctx context.Context, product *domain.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		mylogger.Warn(ctx, c.logger, "Failed to marshal product for cache", zap.String("id", product.ID), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, productKey(product.ID), data, c.ttl).Err(); err != nil {
		mylogger.Warn(ctx, c.logger, "Failed to write product cache", zap.String("id", product.ID), zap.Error(err))
	}
}

func (c *ProductCache) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error invalidating product cache: %w", err)
	}

	return nil
}
