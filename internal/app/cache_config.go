package app

import (
	"strings"
	"time"

	"github.com/charlesng35/signup/internal/cache"
)

const (
	fallbackRedisAddress = "127.0.0.1:6379"
	fallbackRedisTimeout = 5 * time.Second
)

// RedisClientConfig maps cache.redis onto the rate limit counter store settings. A blank
// address, negative database index or non-positive timeout falls back to the loader defaults.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	out := cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       max(c.Redis.DB, 0),
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
	if out.Address == "" {
		out.Address = fallbackRedisAddress
	}
	if out.Timeout <= 0 {
		out.Timeout = fallbackRedisTimeout
	}
	return out
}
