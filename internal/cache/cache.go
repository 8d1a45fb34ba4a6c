package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheService stores JSON-encoded values. A zero ttl keeps the value until deleted.
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes every key matching a glob pattern ("*", "?", "[...]").
	DeletePattern(ctx context.Context, pattern string) error
	Close() error
}
