// Package cache keeps extracted page text in Redis so repeated enhancements of
// related topics do not refetch the same reference pages.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"enhancer/internal/logger"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "enhancer:extract:"

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache stores extracted text keyed by URL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies connectivity.
func NewRedisCache(opts Options) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Key derives the cache key for a page URL.
func Key(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return keyPrefix + hex.EncodeToString(sum[:16])
}

// Get returns the cached text for pageURL and whether it was present.
func (c *RedisCache) Get(ctx context.Context, pageURL string) (string, bool, error) {
	text, err := c.client.Get(ctx, Key(pageURL)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// Set stores text for pageURL with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, pageURL, text string) error {
	return c.client.Set(ctx, Key(pageURL), text, c.ttl).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// URLExtractor is the extraction call being cached.
type URLExtractor interface {
	ExtractURL(ctx context.Context, rawURL string) (string, error)
}

// CachedExtractor serves ExtractURL from Redis when possible. Cache failures are
// logged and never fail the extraction.
type CachedExtractor struct {
	next  URLExtractor
	cache *RedisCache
	log   *slog.Logger
}

// NewCachedExtractor wraps next with cache.
func NewCachedExtractor(next URLExtractor, cache *RedisCache) *CachedExtractor {
	return &CachedExtractor{
		next:  next,
		cache: cache,
		log:   logger.With("component", "extract_cache"),
	}
}

func (c *CachedExtractor) ExtractURL(ctx context.Context, rawURL string) (string, error) {
	text, ok, err := c.cache.Get(ctx, rawURL)
	if err != nil {
		c.log.Warn("Cache lookup failed", "url", rawURL, "error", err)
	} else if ok {
		c.log.Debug("Cache hit", "url", rawURL)
		return text, nil
	}

	text, err = c.next.ExtractURL(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, rawURL, text); err != nil {
		c.log.Warn("Cache write failed", "url", rawURL, "error", err)
	}
	return text, nil
}
