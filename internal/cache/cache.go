package cache

import (
	"context"
	"time"
)

// Cache is the key/value surface the upload pipeline depends on.
type Cache interface {
	// SetEx overwrites key with value and a fresh TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SAdd appends values to the collection under key and refreshes its TTL.
	// Identical values are kept.
	SAdd(ctx context.Context, key string, values []string, ttl time.Duration) (bool, error)
	// SMembers returns every value of the collection, empty when absent.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SetNX sets key only when absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Del removes key and reports whether it existed.
	Del(ctx context.Context, key string) (bool, error)
}
