// Package cache keeps fetched list pages in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"godash/internal/domain/shared"
	"godash/internal/store/repositories"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	versionKey = "godash:page:version"
	keyPrefix  = "godash:page"
)

// New connects to Redis and checks the connection.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: ping: %w", err)
	}
	return client, nil
}

// PageCache is a read-through cache in front of a PageSource. Keys carry a global
// version so Bump drops every cached page at once. Redis errors never fail a fetch;
// the inner source is used instead.
type PageCache struct {
	client *redis.Client
	inner  repositories.PageSource
	ttl    time.Duration
}

// NewPageCache wraps inner. A nil client disables caching.
func NewPageCache(client *redis.Client, inner repositories.PageSource, ttl time.Duration) *PageCache {
	return &PageCache{client: client, inner: inner, ttl: ttl}
}

// FetchPage serves the page from Redis or loads and stores it.
func (c *PageCache) FetchPage(ctx context.Context, endpoint string, query url.Values) (*shared.RawPage, error) {
	if c.client == nil || c.ttl <= 0 {
		return c.inner.FetchPage(ctx, endpoint, query)
	}

	key, err := c.Key(ctx, endpoint, query)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("cache: key unavailable, bypassing")
		return c.inner.FetchPage(ctx, endpoint, query)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var page shared.RawPage
		if uerr := json.Unmarshal(payload, &page); uerr == nil {
			log.Debug().Str("key", key).Msg("cache hit")
			return &page, nil
		}
		log.Warn().Str("key", key).Msg("cache: dropping undecodable entry")
		_ = c.client.Del(ctx, key).Err()
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("cache: read failed")
	}

	page, err := c.inner.FetchPage(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(page)
	if err != nil {
		return page, nil
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: write failed")
	}
	return page, nil
}

// Version returns the current cache version, initialising it when missing.
func (c *PageCache) Version(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, versionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, versionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Key composes the cache key: prefix, version, endpoint and the sorted query.
func (c *PageCache) Key(ctx context.Context, endpoint string, query url.Values) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%s?%s", keyPrefix, ver, strings.Trim(endpoint, "/"), query.Encode()), nil
}

// Bump invalidates every cached page.
func (c *PageCache) Bump(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if _, err := c.Version(ctx); err != nil {
		return err
	}
	return c.client.Incr(ctx, versionKey).Err()
}
