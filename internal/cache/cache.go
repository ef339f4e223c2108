// Package cache keeps the book catalog in Redis so catalog reads skip the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bookbridge-backend/internal/domain"
	"bookbridge-backend/internal/logger"
)

const catalogKey = "bookbridge:catalog"

// CatalogCache stores the full catalog snapshot. Failures are logged and
// reported as misses so callers fall back to the database.
type CatalogCache interface {
	GetCatalog(ctx context.Context) ([]domain.Book, bool)
	SetCatalog(ctx context.Context, books []domain.Book)
	Invalidate(ctx context.Context)
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", "addr", addr)
	return rdb, nil
}

type redisCatalog struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisCatalog(rdb redis.Cmdable, ttl time.Duration) CatalogCache {
	return &redisCatalog{rdb: rdb, ttl: ttl}
}

func (c *redisCatalog) GetCatalog(ctx context.Context) ([]domain.Book, bool) {
	data, err := c.rdb.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.ExternalServiceResult("redis", "GET", err, "key", catalogKey)
		}
		return nil, false
	}
	var books []domain.Book
	if err := json.Unmarshal(data, &books); err != nil {
		logger.Warn("Discarding unreadable catalog cache entry", "error", err)
		return nil, false
	}
	return books, true
}

func (c *redisCatalog) SetCatalog(ctx context.Context, books []domain.Book) {
	data, err := json.Marshal(books)
	if err != nil {
		logger.Warn("Failed to encode catalog for cache", "error", err)
		return
	}
	err = c.rdb.Set(ctx, catalogKey, data, c.ttl).Err()
	logger.ExternalServiceResult("redis", "SET", err, "key", catalogKey, "books", len(books))
}

func (c *redisCatalog) Invalidate(ctx context.Context) {
	err := c.rdb.Del(ctx, catalogKey).Err()
	logger.ExternalServiceResult("redis", "DEL", err, "key", catalogKey)
}

type noopCatalog struct{}

// NewNoop returns a cache that never hits.
func NewNoop() CatalogCache { return noopCatalog{} }

func (noopCatalog) GetCatalog(context.Context) ([]domain.Book, bool) { return nil, false }
func (noopCatalog) SetCatalog(context.Context, []domain.Book) {}
func (noopCatalog) Invalidate(context.Context) {}
