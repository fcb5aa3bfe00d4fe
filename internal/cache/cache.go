// Package cache holds the advisory TTL caches shared by the training services.
// Entries are JSON encoded so both backends behave the same way.
package cache

import (
	"context"
	"time"
)

// Cache is a TTL key/value store. Implementations must be safe for concurrent use.
// Patterns use glob syntax where '*' matches any run of characters.
type Cache interface {
	// Get decodes the value stored under key into dest. The bool reports a hit.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}
