// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/restaurant-roulette/server/internal/models"
)

// searchKeyPrefix namespaces memoized search-provider responses.
const searchKeyPrefix = "roulette:search:"

// DefaultSearchTTL bounds how long a (location, mood) result is reused
// before the provider is asked again.
const DefaultSearchTTL = 15 * time.Minute

// Cache wraps the Redis client used to memoize search-provider
// responses. Lobby state never goes through here; lobbies are process
// memory only.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// Connect builds a Cache from environment variables:
//   - REDIS_ADDR (empty => caching disabled, returns nil)
//   - REDIS_DB (optional, default 0)
//   - SEARCH_CACHE_TTL (optional Go duration, default 15m)
func Connect(logger *logrus.Logger) (*Cache, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   getEnvInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return &Cache{
		rdb:    rdb,
		ttl:    getEnvDuration("SEARCH_CACHE_TTL", DefaultSearchTTL),
		logger: logger,
	}, nil
}

// GetSearch returns the memoized restaurants for (location, mood), if
// any. A Redis error counts as a miss; the provider is the fallback.
func (c *Cache) GetSearch(ctx context.Context, location, mood string) ([]models.Restaurant, bool) {
	data, err := c.rdb.Get(ctx, searchKey(location, mood)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnf("search cache read failed: %v", err)
		}
		return nil, false
	}
	var restaurants []models.Restaurant
	if err := json.Unmarshal(data, &restaurants); err != nil {
		c.logger.Warnf("search cache entry corrupt, ignoring: %v", err)
		return nil, false
	}
	return restaurants, true
}

// SetSearch memoizes restaurants for (location, mood) with the
// configured TTL. Failures are logged and swallowed; the cache is an
// optimization, not a dependency.
func (c *Cache) SetSearch(ctx context.Context, location, mood string, restaurants []models.Restaurant) {
	data, err := json.Marshal(restaurants)
	if err != nil {
		c.logger.Warnf("failed to marshal search cache entry: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, searchKey(location, mood), data, c.ttl).Err(); err != nil {
		c.logger.Warnf("search cache write failed: %v", err)
	}
}

func searchKey(location, mood string) string {
	return searchKeyPrefix + strings.ToLower(strings.TrimSpace(location)) + ":" + strings.ToLower(strings.TrimSpace(mood))
}

// getEnvInt parses an environment variable as an integer, else def.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration parses an environment variable as a Go duration, else def.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
